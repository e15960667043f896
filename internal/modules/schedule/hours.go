package schedule

import (
	"fmt"
	"log"
	"time"

	"spacebooking/internal/domain"
)

// HoursValidator checks occurrences against a space's daily operating window.
type HoursValidator struct {
	expander Expander
}

func NewHoursValidator(expander Expander) *HoursValidator {
	return &HoursValidator{expander: expander}
}

// Validate passes when the space has no configured window. Otherwise every
// occurrence must start at or after the opening time and end at or before
// the closing time of day; the first violation is reported.
func (v *HoursValidator) Validate(space *domain.Space, start, end time.Time, rule string) error {
	if space == nil || !space.HasOperatingHours() {
		return nil
	}

	opens, openErr := clockMinutes(*space.MinStartTime)
	closes, closeErr := clockMinutes(*space.MinEndTime)
	if openErr != nil || closeErr != nil {
		log.Printf("space_hours_invalid space_id=%d min_start_time=%q min_end_time=%q",
			space.ID, *space.MinStartTime, *space.MinEndTime)
		return nil
	}

	occurrences, err := v.expander.Expand(start, end, rule)
	if err != nil {
		return err
	}

	for _, occ := range occurrences {
		if minutesOfDay(occ.Start) < opens {
			return &OperatingHoursError{Reason: fmt.Sprintf(
				"start time %s on %s is before the space opening time %s",
				occ.Start.Format(clockLayout), occ.Start.Format(dateLayout), *space.MinStartTime,
			)}
		}
		if minutesOfDay(occ.End) > closes {
			return &OperatingHoursError{Reason: fmt.Sprintf(
				"end time %s on %s is after the space closing time %s",
				occ.End.Format(clockLayout), occ.End.Format(dateLayout), *space.MinEndTime,
			)}
		}
	}
	return nil
}

func clockMinutes(hhmm string) (int, error) {
	hour, minute, err := parseClock(hhmm)
	if err != nil {
		return 0, err
	}
	return hour*60 + minute, nil
}
