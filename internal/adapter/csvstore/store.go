// Package csvstore persists the monthly extracts, the cumulative archive and
// the month ledger as CSV files. Every write replaces the whole file
// atomically, so an interrupted run leaves the previous file intact.
package csvstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Store reads and writes the files of one station.
type Store struct {
	dir        string
	station    string
	ledgerPath string
}

// New creates a Store rooted at dir. ledgerPath may live outside dir.
func New(dir, station, ledgerPath string) *Store {
	return &Store{dir: dir, station: station, ledgerPath: ledgerPath}
}

// ArchivePath is the cumulative archive, e.g. data/KMLB_all.csv.
func (s *Store) ArchivePath() string {
	return filepath.Join(s.dir, s.station+"_all.csv")
}

// BackupPath holds the archive as it was before the last overwrite.
func (s *Store) BackupPath() string {
	return filepath.Join(s.dir, s.station+"_all_old.csv")
}

// ExtractPath is the per-month file, e.g. data/KMLB201701.csv.
func (s *Store) ExtractPath(ym domain.YearMonth) string {
	return filepath.Join(s.dir, s.station+ym.Key()+".csv")
}

// LedgerPath is the processed-months file.
func (s *Store) LedgerPath() string {
	return s.ledgerPath
}

// LoadArchive reads the archive. A missing file is an empty archive.
func (s *Store) LoadArchive() (domain.Archive, error) {
	f, err := os.Open(s.ArchivePath())
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Archive{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	samples, err := ReadSeries(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", s.ArchivePath(), err)
	}
	return domain.Archive(samples), nil
}

// SaveArchive rewrites the archive.
func (s *Store) SaveArchive(archive domain.Archive) error {
	if err := writeFileAtomic(s.ArchivePath(), func(w io.Writer) error {
		return WriteSeries(w, archive)
	}); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// SaveExtract writes one month's normalized series and returns its path.
func (s *Store) SaveExtract(ym domain.YearMonth, series domain.Series) (string, error) {
	path := s.ExtractPath(ym)
	if err := writeFileAtomic(path, func(w io.Writer) error {
		return WriteSeries(w, series)
	}); err != nil {
		return "", fmt.Errorf("write extract: %w", err)
	}
	return path, nil
}

// Backup copies the current archive to BackupPath. It reports false when
// there is no archive yet.
func (s *Store) Backup() (bool, error) {
	src, err := os.Open(s.ArchivePath())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open archive for backup: %w", err)
	}
	defer src.Close()

	if err := writeFileAtomic(s.BackupPath(), func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}); err != nil {
		return false, fmt.Errorf("write backup: %w", err)
	}
	return true, nil
}

var ledgerHeader = []string{"year", "month"}

// LoadLedger reads the processed months. A missing file is an empty ledger.
func (s *Store) LoadLedger() (domain.MonthLedger, error) {
	f, err := os.Open(s.ledgerPath)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.MonthLedger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(ledgerHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		return domain.MonthLedger{}, nil
	}
	if rows[0][0] != ledgerHeader[0] || rows[0][1] != ledgerHeader[1] {
		return nil, fmt.Errorf("ledger header: got %v, want %v", rows[0], ledgerHeader)
	}

	ledger := make(domain.MonthLedger, 0, len(rows)-1)
	for i, row := range rows[1:] {
		year, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: year: %w", i+1, err)
		}
		month, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: month: %w", i+1, err)
		}
		ledger = append(ledger, domain.YearMonth{Year: year, Month: time.Month(month)})
	}
	if err := ledger.Validate(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// SaveLedger rewrites the ledger in ascending order.
func (s *Store) SaveLedger(ledger domain.MonthLedger) error {
	if err := ledger.Validate(); err != nil {
		return err
	}
	if err := writeFileAtomic(s.ledgerPath, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(ledgerHeader); err != nil {
			return err
		}
		for _, ym := range ledger {
			if err := cw.Write([]string{strconv.Itoa(ym.Year), strconv.Itoa(int(ym.Month))}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it over path once fully synced.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
