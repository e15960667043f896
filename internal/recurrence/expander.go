package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"spacebooking/internal/pkg/clock"
)

// DefaultHorizonCap bounds the number of occurrences a single rule may expand
// into (roughly one year of daily occurrences).
const DefaultHorizonCap = 365

// ErrMalformedRule is returned when a recurrence rule cannot be parsed or
// yields no occurrences inside the expansion horizon.
var ErrMalformedRule = errors.New("malformed recurrence rule")

// Interval is a concrete half-open [Start, End) time span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Expander materializes recurrence rules into bounded occurrence sets.
type Expander struct {
	clock      clock.Clock
	horizonCap int
}

func NewExpander(c clock.Clock, horizonCap int) *Expander {
	if c == nil {
		c = clock.NewSystem()
	}
	if horizonCap <= 0 {
		horizonCap = DefaultHorizonCap
	}
	return &Expander{clock: c, horizonCap: horizonCap}
}

// Expand returns the ordered occurrences generated by rule, seeded at
// seedStart and carrying the seed duration. An empty rule yields the seed
// interval itself. Enumeration stops one year after now, at the rule's own
// bound, or after the horizon cap of occurrences, whichever comes first.
func (e *Expander) Expand(seedStart, seedEnd time.Time, rule string) ([]Interval, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return []Interval{{Start: seedStart, End: seedEnd}}, nil
	}

	r, err := Parse(rule, seedStart)
	if err != nil {
		return nil, err
	}

	duration := seedEnd.Sub(seedStart)
	horizon := e.clock.Now().AddDate(1, 0, 0)

	out := make([]Interval, 0)
	next := r.Iterator()
	for len(out) < e.horizonCap {
		anchor, ok := next()
		if !ok || anchor.After(horizon) {
			break
		}
		out = append(out, Interval{Start: anchor, End: anchor.Add(duration)})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: rule yields no occurrences before %s", ErrMalformedRule, horizon.Format("2006-01-02"))
	}
	return out, nil
}

// Parse validates rule text and binds it to dtstart. Accepts a bare
// "FREQ=...;..." value, an "RRULE:" prefixed line, or a multi-line block in
// which DTSTART lines are ignored in favour of dtstart.
func Parse(rule string, dtstart time.Time) (*rrule.RRule, error) {
	body, err := ruleBody(rule)
	if err != nil {
		return nil, err
	}

	opt, err := rrule.StrToROptionInLocation(body, dtstart.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	opt.Dtstart = dtstart

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	return r, nil
}

func ruleBody(rule string) (string, error) {
	var body string
	for _, line := range strings.Split(rule, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "DTSTART"):
			continue
		case strings.HasPrefix(upper, "RRULE:"):
			line = line[len("RRULE:"):]
		case strings.Contains(line, ":"):
			return "", fmt.Errorf("%w: unsupported property %q", ErrMalformedRule, line)
		}
		if body != "" {
			return "", fmt.Errorf("%w: multiple RRULE lines", ErrMalformedRule)
		}
		body = line
	}
	if body == "" {
		return "", fmt.Errorf("%w: missing RRULE", ErrMalformedRule)
	}
	return body, nil
}
