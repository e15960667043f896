package schedule

import (
	"context"
	"log"
	"time"

	"spacebooking/internal/domain"
	"spacebooking/internal/recurrence"
)

type Interval = recurrence.Interval

// Conflict describes one overlap between a candidate occurrence and an
// occurrence of an existing schedule on the same space.
type Conflict struct {
	ScheduleID    int64    `json:"schedule_id"`
	ScheduleTitle string   `json:"schedule_title"`
	Existing      Interval `json:"conflicting_interval"`
	Candidate     Interval `json:"candidate_interval"`
}

type ConflictReport struct {
	HasConflict bool       `json:"has_conflict"`
	Conflicts   []Conflict `json:"conflicts"`
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ConflictDetector compares candidate occurrences with the active schedules
// already booked on a space. Stored schedules are re-expanded in loc so
// their wall-clock times survive DST changes.
type ConflictDetector struct {
	schedules ScheduleRepository
	expander  Expander
	loc       *time.Location
}

func NewConflictDetector(schedules ScheduleRepository, expander Expander, loc *time.Location) *ConflictDetector {
	if loc == nil {
		loc = time.Local
	}
	return &ConflictDetector{schedules: schedules, expander: expander, loc: loc}
}

// FindConflicts expands the candidate, loads pending and confirmed schedules
// of the space (minus excludeID) and returns every overlapping pair.
func (d *ConflictDetector) FindConflicts(ctx context.Context, spaceID int64, start, end time.Time, rule string, excludeID int64) (*ConflictReport, error) {
	candidate, err := d.expander.Expand(start, end, rule)
	if err != nil {
		return nil, err
	}

	existing, err := d.schedules.ListActiveBySpace(ctx, spaceID, excludeID)
	if err != nil {
		return nil, err
	}

	conflicts := make([]Conflict, 0)
	for i := range existing {
		s := &existing[i]
		if !s.Status.Active() || s.ID == excludeID {
			continue
		}
		for _, occ := range d.occurrencesOf(s) {
			for _, c := range candidate {
				if Overlaps(c, occ) {
					conflicts = append(conflicts, Conflict{
						ScheduleID:    s.ID,
						ScheduleTitle: s.Title,
						Existing:      occ,
						Candidate:     c,
					})
				}
			}
		}
	}

	return &ConflictReport{HasConflict: len(conflicts) > 0, Conflicts: conflicts}, nil
}

func (d *ConflictDetector) occurrencesOf(s *domain.Schedule) []Interval {
	start, end := s.StartTime.In(d.loc), s.EndTime.In(d.loc)
	seed := []Interval{{Start: start, End: end}}
	if !s.Recurring() {
		return seed
	}
	occ, err := d.expander.Expand(start, end, s.RRule)
	if err != nil {
		log.Printf("schedule_conflict_expand schedule_id=%d error=%q", s.ID, err.Error())
		return seed
	}
	return occ
}
