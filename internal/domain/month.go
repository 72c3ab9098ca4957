package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// nextMonthOffset lands in the following month from the first day of any
// month: the longest month has 31 days and the offset is 35, while no pair of
// consecutive months is shorter than 59 days.
const nextMonthOffset = 5 * 7 * 24 * time.Hour

// NextMonth returns the calendar month after last.
func NextMonth(last YearMonth) YearMonth {
	t := time.Date(last.Year, last.Month, 1, 0, 0, 0, 0, time.UTC).Add(nextMonthOffset)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearMonth{}, fmt.Errorf("parse month %q: want YYYY-MM", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	ym := YearMonth{Year: y, Month: time.Month(m)}
	if err := ym.validate(); err != nil {
		return YearMonth{}, err
	}
	return ym, nil
}

func (ym YearMonth) validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return fmt.Errorf("month %d out of range 1-12", int(ym.Month))
	}
	if ym.Year < 1 {
		return fmt.Errorf("year %d out of range", ym.Year)
	}
	return nil
}

// MonthLedger lists the months already ingested, strictly increasing.
type MonthLedger []YearMonth

// Validate checks month ranges and strict calendar ordering.
func (l MonthLedger) Validate() error {
	for i, ym := range l {
		if err := ym.validate(); err != nil {
			return fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		if i > 0 && !l[i-1].Before(ym) {
			return fmt.Errorf("%w: %s follows %s", ErrLedgerOrder, ym, l[i-1])
		}
	}
	return nil
}

// Last returns the most recently processed month.
func (l MonthLedger) Last() (YearMonth, bool) {
	if len(l) == 0 {
		return YearMonth{}, false
	}
	return l[len(l)-1], true
}

// Append returns a new ledger with ym added. ym must be later than every
// month already recorded.
func (l MonthLedger) Append(ym YearMonth) (MonthLedger, error) {
	if err := ym.validate(); err != nil {
		return nil, err
	}
	if last, ok := l.Last(); ok && !last.Before(ym) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrLedgerOrder, ym, last)
	}
	out := make(MonthLedger, len(l), len(l)+1)
	copy(out, l)
	return append(out, ym), nil
}
