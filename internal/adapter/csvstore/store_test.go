package csvstore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStation = "KMLB"

var t0 = time.Date(2017, time.January, 1, 5, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func testSeries() domain.Series {
	return domain.Series{
		{Time: t0, PressurePa: ptr(101320.7337472), MSLPPa: ptr(101520.7337472)},
		{Time: t0.Add(5 * time.Minute)},
		{Time: t0.Add(10 * time.Minute), PressurePa: ptr(101600), MSLPPa: ptr(101800)},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(dir, testStation, filepath.Join(dir, "processed_months.csv"))
}

func TestWriteSeries_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeries(&buf, testSeries()))

	want := "DateTime,Pressure (Pa),MSLP (Pa)\n" +
		"01-Jan-2017 05:00:00,101320.733747,101520.733747\n" +
		"01-Jan-2017 05:05:00,999999,999999\n" +
		"01-Jan-2017 05:10:00,101600.000000,101800.000000\n"
	assert.Equal(t, want, buf.String())
}

func TestReadSeries_RoundTripIsByteStable(t *testing.T) {
	var first bytes.Buffer
	require.NoError(t, WriteSeries(&first, testSeries()))

	samples, err := ReadSeries(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, t0, samples[0].Time)
	assert.True(t, samples[1].Missing())
	assert.Nil(t, samples[1].MSLPPa)

	var second bytes.Buffer
	require.NoError(t, WriteSeries(&second, samples))
	assert.Equal(t, first.String(), second.String())
}

func TestReadSeries_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad header", "time,p,m\n", "header"},
		{"bad time", "DateTime,Pressure (Pa),MSLP (Pa)\n2017-01-01,1,2\n", "line 2"},
		{"bad value", "DateTime,Pressure (Pa),MSLP (Pa)\n01-Jan-2017 05:00:00,x,2\n", "pressure"},
		{"short row", "DateTime,Pressure (Pa),MSLP (Pa)\n01-Jan-2017 05:00:00,1\n", "fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSeries(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	samples, err := ReadSeries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestStore_Paths(t *testing.T) {
	s := New("data", testStation, "data/processed_months.csv")
	assert.Equal(t, filepath.Join("data", "KMLB_all.csv"), s.ArchivePath())
	assert.Equal(t, filepath.Join("data", "KMLB_all_old.csv"), s.BackupPath())
	assert.Equal(t, filepath.Join("data", "KMLB201701.csv"), s.ExtractPath(domain.YearMonth{Year: 2017, Month: time.January}))
	assert.Equal(t, "data/processed_months.csv", s.LedgerPath())
}

func TestStore_ArchiveRoundTrip(t *testing.T) {
	s := newTestStore(t)

	empty, err := s.LoadArchive()
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveArchive(domain.Archive(testSeries())))
	loaded, err := s.LoadArchive()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.InDelta(t, 101320.733747, *loaded[0].PressurePa, 1e-9)
}

func TestStore_Backup(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Backup()
	require.NoError(t, err)
	assert.False(t, ok, "nothing to back up yet")
	assert.NoFileExists(t, s.BackupPath())

	require.NoError(t, s.SaveArchive(domain.Archive(testSeries())))
	ok, err = s.Backup()
	require.NoError(t, err)
	assert.True(t, ok)

	orig, err := os.ReadFile(s.ArchivePath())
	require.NoError(t, err)
	backup, err := os.ReadFile(s.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, orig, backup)
}

func TestStore_SaveExtract(t *testing.T) {
	s := newTestStore(t)
	ym := domain.YearMonth{Year: 2017, Month: time.January}

	path, err := s.SaveExtract(ym, testSeries())
	require.NoError(t, err)
	assert.Equal(t, s.ExtractPath(ym), path)
	assert.FileExists(t, path)
}

func TestStore_LedgerRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ledger, err := s.LoadLedger()
	require.NoError(t, err)
	assert.Empty(t, ledger)

	ledger = domain.MonthLedger{{Year: 2017, Month: time.November}, {Year: 2017, Month: time.December}}
	require.NoError(t, s.SaveLedger(ledger))

	raw, err := os.ReadFile(s.LedgerPath())
	require.NoError(t, err)
	assert.Equal(t, "year,month\n2017,11\n2017,12\n", string(raw))

	loaded, err := s.LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, ledger, loaded)
}

func TestStore_LedgerRejectsDisorder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LedgerPath(), []byte("year,month\n2018,1\n2017,12\n"), 0o644))

	_, err := s.LoadLedger()
	require.ErrorIs(t, err, domain.ErrLedgerOrder)

	err = s.SaveLedger(domain.MonthLedger{{Year: 2018, Month: time.January}, {Year: 2018, Month: time.January}})
	require.ErrorIs(t, err, domain.ErrLedgerOrder)
}

func TestWriteFileAtomic_FailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "KMLB_all.csv")
	require.NoError(t, os.WriteFile(path, []byte("last known good"), 0o644))

	err := writeFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	})
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "last known good", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be removed")
}
