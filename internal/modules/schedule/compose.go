package schedule

import (
	"regexp"
	"strconv"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Compose combines a YYYY-MM-DD date and an HH:mm wall-clock time into an
// instant in loc, with zero seconds.
func Compose(date, hhmm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if !datePattern.MatchString(date) {
		return time.Time{}, ErrInvalidDateFormat
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}

	hour, minute, err := parseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// ProcessTimes composes both ends of a same-day interval.
func ProcessTimes(date, startTime, endTime string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := Compose(date, startTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := Compose(date, endTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

func parseClock(hhmm string) (int, int, error) {
	if !clockPattern.MatchString(hhmm) {
		return 0, 0, ErrInvalidTimeFormat
	}
	hour, _ := strconv.Atoi(hhmm[:2])
	minute, _ := strconv.Atoi(hhmm[3:])
	return hour, minute, nil
}

// minutesOfDay returns the wall-clock position of t as hours*60+minutes.
func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
