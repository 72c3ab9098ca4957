package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMonth(t *testing.T) {
	tests := []struct {
		name string
		last YearMonth
		want YearMonth
	}{
		{"year rollover", YearMonth{2023, time.December}, YearMonth{2024, time.January}},
		{"january", YearMonth{2023, time.January}, YearMonth{2023, time.February}},
		{"31-day month", YearMonth{2017, time.August}, YearMonth{2017, time.September}},
		{"leap february", YearMonth{2024, time.February}, YearMonth{2024, time.March}},
		{"common february", YearMonth{2023, time.February}, YearMonth{2023, time.March}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonth(tt.last))
		})
	}
}

func TestNextMonth_NeverSkips(t *testing.T) {
	ym := YearMonth{2000, time.January}
	for i := 0; i < 12*30; i++ {
		next := NextMonth(ym)
		wantYear, wantMonth := ym.Year, ym.Month+1
		if wantMonth > time.December {
			wantYear, wantMonth = wantYear+1, time.January
		}
		require.Equal(t, YearMonth{wantYear, wantMonth}, next, "after %s", ym)
		ym = next
	}
}

func TestYearMonth_Format(t *testing.T) {
	ym := YearMonth{2017, time.March}
	assert.Equal(t, "03/2017", ym.String())
	assert.Equal(t, "201703", ym.Key())
	assert.True(t, ym.Before(YearMonth{2017, time.April}))
	assert.True(t, ym.Before(YearMonth{2018, time.January}))
	assert.False(t, ym.Before(ym))
}

func TestParseYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2017-09")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{2017, time.September}, ym)

	for _, bad := range []string{"", "2017", "2017-13", "2017-00", "abcd-01", "2017-x"} {
		_, err := ParseYearMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestMonthLedger_Validate(t *testing.T) {
	ok := MonthLedger{{2017, time.November}, {2017, time.December}, {2018, time.February}}
	require.NoError(t, ok.Validate())

	dup := MonthLedger{{2017, time.November}, {2017, time.November}}
	require.ErrorIs(t, dup.Validate(), ErrLedgerOrder)

	backwards := MonthLedger{{2018, time.January}, {2017, time.December}}
	require.ErrorIs(t, backwards.Validate(), ErrLedgerOrder)

	badMonth := MonthLedger{{2018, 13}}
	require.Error(t, badMonth.Validate())
}

func TestMonthLedger_Append(t *testing.T) {
	var l MonthLedger
	_, ok := l.Last()
	assert.False(t, ok)

	l, err := l.Append(YearMonth{2017, time.November})
	require.NoError(t, err)
	l2, err := l.Append(YearMonth{2017, time.December})
	require.NoError(t, err)

	last, ok := l2.Last()
	require.True(t, ok)
	assert.Equal(t, YearMonth{2017, time.December}, last)
	assert.Len(t, l, 1, "append must not mutate the receiver")

	_, err = l2.Append(YearMonth{2017, time.December})
	require.ErrorIs(t, err, ErrLedgerOrder)
}
