package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Period identifies one calendar month. Month is 0-indexed to match the
// stored checkpoint records.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod normalises month overflow, so NewPeriod(2024, 12) is January 2025.
func NewPeriod(year, month int) Period {
	idx := year*12 + month
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return Period{Year: y, Month: m}
}

// PeriodOf returns the period containing d.
func PeriodOf(d civil.Date) Period {
	return Period{Year: d.Year, Month: int(d.Month) - 1}
}

func (p Period) index() int {
	return p.Year*12 + p.Month
}

// Compare returns -1, 0 or 1 depending on whether p is before, equal to or
// after o.
func (p Period) Compare(o Period) int {
	switch a, b := p.index(), o.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }

// After reports whether p is strictly later than o.
func (p Period) After(o Period) bool { return p.Compare(o) > 0 }

// Next returns the following month.
func (p Period) Next() Period { return NewPeriod(p.Year, p.Month+1) }

// Prev returns the preceding month.
func (p Period) Prev() Period { return NewPeriod(p.Year, p.Month-1) }

// Start returns the first day of the period.
func (p Period) Start() civil.Date {
	return civil.Date{Year: p.Year, Month: time.Month(p.Month + 1), Day: 1}
}

// Valid reports whether Month is within 0..11.
func (p Period) Valid() bool {
	return p.Month >= 0 && p.Month <= 11
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month+1)
}
