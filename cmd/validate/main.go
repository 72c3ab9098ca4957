// Command validate checks the integrity of a station's persisted files: the
// month ledger, the cumulative archive, and every monthly extract. It
// verifies ordering, grid alignment, derived values, and extract/archive
// consistency, and can list recent runs from the run log.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dir data \
//	  -station KMLB \
//	  -ledger data/processed_months.csv \
//	  -runs data/runs.db
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the errors printed per phase; a shifted archive can
// produce one per row.
const maxReported = 20

func main() {
	dir := flag.String("dir", "data", "directory holding the archive and extracts")
	station := flag.String("station", "KMLB", "station identifier")
	ledger := flag.String("ledger", "data/processed_months.csv", "path to the processed-months ledger")
	runs := flag.String("runs", "", "optional run log database to summarize")
	flag.Parse()

	if code := run(*dir, *station, *ledger, *runs); code != 0 {
		os.Exit(code)
	}
}

func run(dir, station, ledgerPath, runsPath string) int {
	fmt.Printf("=== %s Archive Integrity Validation ===\n\n", station)

	store := csvstore.New(dir, station, ledgerPath)

	ledger, err := store.LoadLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load ledger: %v\n", err)
		return 1
	}
	archive, err := store.LoadArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load archive: %v\n", err)
		return 1
	}
	extracts, err := loadExtracts(store, ledger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load extracts: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateArchiveOrder(archive),
		validateGrid(extracts),
		validateDerived(archive),
		validateExtracts(extracts, archive),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Ledger: %d months", len(ledger))
	if last, ok := ledger.Last(); ok {
		fmt.Printf(" (last %s)", last)
	}
	fmt.Printf("\nArchive: %d samples, %d missing\n", len(archive), domain.MissingCount(archive))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if runsPath != "" {
		if err := printRuns(runsPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: run log: %v\n", err)
			return 1
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

type extract struct {
	month   domain.YearMonth
	path    string
	samples []domain.Sample
	err     error
}

// loadExtracts reads the extract of every ledger month. A missing or
// unreadable extract is recorded on the entry, not returned.
func loadExtracts(store *csvstore.Store, ledger domain.MonthLedger) ([]extract, error) {
	out := make([]extract, 0, len(ledger))
	for _, ym := range ledger {
		e := extract{month: ym, path: store.ExtractPath(ym)}
		f, err := os.Open(e.path)
		if err != nil {
			e.err = err
			out = append(out, e)
			continue
		}
		e.samples, e.err = csvstore.ReadSeries(f)
		if err := f.Close(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ── Phases ──

func validateArchiveOrder(archive domain.Archive) *phase {
	p := &phase{name: "Archive ascending, unique timestamps"}
	for i := 1; i < len(archive); i++ {
		prev, cur := archive[i-1].Time, archive[i].Time
		switch {
		case cur.Equal(prev):
			p.errorf("row %d: duplicate timestamp %s", i+2, cur.Format(csvstore.TimeLayout))
		case cur.Before(prev):
			p.errorf("row %d: %s precedes %s", i+2, cur.Format(csvstore.TimeLayout), prev.Format(csvstore.TimeLayout))
		}
	}
	return p
}

// validateGrid checks that each extract is a gap-free 5-minute series. The
// grid phase follows each month's first observation, so it is checked per
// extract rather than across the archive.
func validateGrid(extracts []extract) *phase {
	p := &phase{name: "Extracts on 5-minute grid"}
	for _, e := range extracts {
		for i := 1; i < len(e.samples); i++ {
			if step := e.samples[i].Time.Sub(e.samples[i-1].Time); step != domain.GridStep {
				p.errorf("%s row %d: step %s from previous sample", e.month, i+2, step)
			}
		}
	}
	return p
}

// validateDerived checks MSLP against pressure. Values went through the
// six-decimal CSV format, hence the tolerance.
func validateDerived(archive domain.Archive) *phase {
	p := &phase{name: "MSLP equals pressure plus offset"}
	const tolerance = 2e-6
	for i, s := range archive {
		switch {
		case s.PressurePa == nil && s.MSLPPa == nil:
		case s.PressurePa == nil || s.MSLPPa == nil:
			p.errorf("row %d: pressure and MSLP disagree on missingness", i+2)
		case math.Abs(*s.MSLPPa-*s.PressurePa-domain.MSLPOffsetPa) > tolerance:
			p.errorf("row %d: MSLP %.6f != pressure %.6f + %.0f", i+2, *s.MSLPPa, *s.PressurePa, domain.MSLPOffsetPa)
		}
	}
	return p
}

func validateExtracts(extracts []extract, archive domain.Archive) *phase {
	p := &phase{name: "Extracts present and contained in archive"}

	index := make(map[int64]domain.Sample, len(archive))
	for _, s := range archive {
		index[s.Time.UnixNano()] = s
	}

	for _, e := range extracts {
		if e.err != nil {
			p.errorf("%s: %v", e.month, e.err)
			continue
		}
		if len(e.samples) == 0 {
			p.errorf("%s: extract %s is empty", e.month, e.path)
			continue
		}
		for _, s := range e.samples {
			a, ok := index[s.Time.UnixNano()]
			if !ok {
				p.errorf("%s: %s missing from archive", e.month, s.Time.Format(csvstore.TimeLayout))
				continue
			}
			if !sameValue(a.PressurePa, s.PressurePa) {
				p.errorf("%s: %s pressure differs from archive", e.month, s.Time.Format(csvstore.TimeLayout))
			}
		}
	}
	return p
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ── Run log ──

func printRuns(path string) error {
	runLog, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer runLog.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := runLog.Recent(ctx, 10)
	if err != nil {
		return err
	}

	fmt.Printf("\nRecent runs (%d):\n", len(runs))
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-11s %s  samples=%d missing=%d",
			r.StartedAt.Format(time.RFC3339), r.Status, r.Month, r.Samples, r.Missing)
		if r.Error != "" {
			line += "  error=" + r.Error
		}
		fmt.Println(line)
	}
	return nil
}
