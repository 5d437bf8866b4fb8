package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies one billing month of the Meralco rate schedule.
// The canonical textual form is "YYYY-MM".
type Period struct {
	Year  int        `json:"year" validate:"required,min=2000,max=2100"`
	Month time.Month `json:"month" validate:"required,min=1,max=12"`
}

// NewPeriod builds a Period from a year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// PeriodOf returns the Period containing the given instant.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the canonical "YYYY-MM" form.
func ParsePeriod(s string) (Period, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 2000 || year > 2100 {
		return Period{}, fmt.Errorf("invalid period year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period month %q", parts[1])
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// String renders the canonical "YYYY-MM" form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Compare orders periods chronologically: -1, 0 or +1.
func (p Period) Compare(other Period) int {
	if p.Year != other.Year {
		if p.Year < other.Year {
			return -1
		}
		return 1
	}
	if p.Month != other.Month {
		if p.Month < other.Month {
			return -1
		}
		return 1
	}
	return 0
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// After reports whether p is strictly later than other.
func (p Period) After(other Period) bool {
	return p.Compare(other) > 0
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// MarshalJSON encodes the period as its canonical "YYYY-MM" string.
func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON decodes the canonical "YYYY-MM" string.
func (p *Period) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("period must be a JSON string: %w", err)
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PeriodRange expands the inclusive [start, end] month range in
// chronological order.
func PeriodRange(start, end Period) ([]Period, error) {
	if start.After(end) {
		return nil, fmt.Errorf("invalid period range: %s is after %s", start, end)
	}
	var periods []Period
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}
