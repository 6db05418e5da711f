package backtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StrideUnit is the calendar unit of the walk-forward step
type StrideUnit string

const (
	StrideDay   StrideUnit = "day"
	StrideWeek  StrideUnit = "week"
	StrideMonth StrideUnit = "month"
)

// Stride advances the walk-forward date, e.g. {month, 1} for the monthly back tester
type Stride struct {
	Unit  StrideUnit `yaml:"unit" json:"unit"`
	Every int        `yaml:"every" json:"every"`
}

// DailyStride is the daily screener step
var DailyStride = Stride{Unit: StrideDay, Every: 1}

// Next returns the date one stride after t
func (s Stride) Next(t time.Time) time.Time {
	n := s.Every
	if n <= 0 {
		n = 1
	}
	switch s.Unit {
	case StrideWeek:
		return t.AddDate(0, 0, 7*n)
	case StrideMonth:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Validate checks the unit and step
func (s Stride) Validate() error {
	switch s.Unit {
	case StrideDay, StrideWeek, StrideMonth:
	default:
		return fmt.Errorf("unknown stride unit %q", s.Unit)
	}
	if s.Every <= 0 {
		return fmt.Errorf("stride every must be positive, got %d", s.Every)
	}
	return nil
}

// String formats the stride as "1month"
func (s Stride) String() string {
	return fmt.Sprintf("%d%s", s.Every, s.Unit)
}

// ParseStride parses "day", "2week", "1month" or the short forms "1d", "1w", "1m"
func ParseStride(raw string) (Stride, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}

	every := 1
	if i > 0 {
		n, err := strconv.Atoi(raw[:i])
		if err != nil {
			return Stride{}, fmt.Errorf("parse stride %q: %w", raw, err)
		}
		every = n
	}

	var unit StrideUnit
	switch strings.TrimSuffix(raw[i:], "s") {
	case "d", "day":
		unit = StrideDay
	case "w", "week":
		unit = StrideWeek
	case "m", "month":
		unit = StrideMonth
	default:
		return Stride{}, fmt.Errorf("parse stride %q: unknown unit", raw)
	}

	s := Stride{Unit: unit, Every: every}
	if err := s.Validate(); err != nil {
		return Stride{}, err
	}
	return s, nil
}
