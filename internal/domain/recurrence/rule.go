package recurrence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/routine/internal/calendar"
)

// ErrInvalidRule is returned for an unknown kind or an interval below 1.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Kind is how often an item repeats.
type Kind string

const (
	KindNone    Kind = "none"
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindYearly  Kind = "yearly"
)

// Rule is a frequency plus interval, e.g. every 2 weeks.
type Rule struct {
	Kind     Kind `json:"recurrence_type"`
	Interval int  `json:"recurrence_interval"`
}

// None is the rule for items that never repeat.
var None = Rule{Kind: KindNone, Interval: 1}

// ParseKind maps a wire value onto a Kind. Empty means none.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindNone, nil
	case KindNone, KindDaily, KindWeekly, KindMonthly, KindYearly:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, s)
	}
}

// NewRule parses and validates a rule from its wire fields. A nil interval
// defaults to 1; any explicit value below 1 is rejected.
func NewRule(kind string, interval *int) (Rule, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Rule{}, err
	}
	n := 1
	if interval != nil {
		n = *interval
	}
	r := Rule{Kind: k, Interval: n}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks the rule before it can reach Next.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindNone, KindDaily, KindWeekly, KindMonthly, KindYearly:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval %d must be at least 1", ErrInvalidRule, r.Interval)
	}
	return nil
}

// Repeats reports whether the rule produces further occurrences.
func (r Rule) Repeats() bool {
	return r.Kind != KindNone && r.Kind != ""
}

func (r Rule) String() string {
	if !r.Repeats() {
		return string(KindNone)
	}
	if r.Interval == 1 {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s/%d", r.Kind, r.Interval)
}

// Next returns the occurrence after anchor, or false when the rule does not
// repeat. It never reads the clock.
func Next(anchor calendar.Date, r Rule) (calendar.Date, bool) {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Kind {
	case KindDaily:
		return anchor.AddDays(n), true
	case KindWeekly:
		return anchor.AddDays(7 * n), true
	case KindMonthly:
		return anchor.AddMonths(n), true
	case KindYearly:
		return anchor.AddYears(n), true
	default:
		return calendar.Date{}, false
	}
}

// Occurrences lists up to count dates following anchor, each computed from
// the previous one. A count below 1 yields no dates.
func Occurrences(anchor calendar.Date, r Rule, count int) []calendar.Date {
	if count < 1 {
		return []calendar.Date{}
	}
	out := make([]calendar.Date, 0, count)
	cur := anchor
	for i := 0; i < count; i++ {
		next, ok := Next(cur, r)
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
