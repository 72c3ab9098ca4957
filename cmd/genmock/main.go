// Command genmock writes a synthetic month of page-2 one-minute data in the
// NCEI directory layout, so the ETL can be exercised against a local file
// server. It can also write the normalized extract the ETL should produce,
// computed with the real domain package.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -month 2017-01 \
//	  -out data/mock/asos-onemin \
//	  -expected data/mock/KMLB201701.csv
//
// Serve -out over HTTP and point SOURCE_BASE_URL at it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/ncei"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

type options struct {
	month    domain.YearMonth
	station  string
	wban     string
	prefix   string
	utc      time.Duration
	gapRate  float64
	dropTemp bool
	seed     uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	month := flag.String("month", "", "month to generate, YYYY-MM")
	out := flag.String("out", "", "root directory for the generated .dat file")
	expected := flag.String("expected", "", "optional output path for the normalized extract CSV")
	station := flag.String("station", "KMLB", "station identifier")
	wban := flag.String("wban", "12838", "station WBAN number")
	prefix := flag.String("prefix", "6406", "dataset prefix")
	utcOffset := flag.Duration("utc-offset", -5*time.Hour, "station standard time offset from UTC")
	gapRate := flag.Float64("gap-rate", 0.01, "fraction of minutes with a blank sensor reading")
	dropTemp := flag.Bool("drop-temp", false, "blank the temperature column, forcing the fixed-column parser")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *month == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -month, -out")
	}
	ym, err := domain.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	opts := options{
		month:    ym,
		station:  *station,
		wban:     *wban,
		prefix:   *prefix,
		utc:      *utcOffset,
		gapRate:  *gapRate,
		dropTemp: *dropTemp,
		seed:     *seed,
	}
	zone := time.FixedZone("LST", int(opts.utc/time.Second))

	lines := generate(opts, zone)
	text := ncei.FormatFile(lines)

	// Mirror the archive tree: <prefix>-<YYYY>/<prefix>0<STATION><YYYY><MM>.dat
	datPath := filepath.Join(*out,
		fmt.Sprintf("%s-%04d", opts.prefix, ym.Year),
		fmt.Sprintf("%s0%s%s.dat", opts.prefix, opts.station, ym.Key()))
	if err := writeFile(datPath, text); err != nil {
		return fmt.Errorf("writing source file: %w", err)
	}
	log.Printf("wrote %d lines: %s", len(lines), datPath)

	if *expected == "" {
		return nil
	}

	layout := domain.DefaultLayout()
	res, err := domain.NewParser(layout, zone).ParseRecords(text)
	if err != nil {
		return fmt.Errorf("parsing generated file: %w", err)
	}
	series := domain.Normalize(res.Records)
	if err := writeExtract(*expected, series); err != nil {
		return fmt.Errorf("writing expected extract: %w", err)
	}
	log.Printf("wrote expected extract: %s (%d samples, %d missing, %s parser)",
		*expected, len(series), domain.MissingCount(series), res.Strategy)
	return nil
}

// generate produces one line per minute of the month in station time. The
// pressure follows a semidiurnal tide around 30.00 inHg with small sensor
// noise; each sensor goes blank independently at gapRate.
func generate(opts options, zone *time.Location) []ncei.Line {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	start := time.Date(opts.month.Year, opts.month.Month, 1, 0, 0, 0, 0, zone)
	end := start.AddDate(0, 1, 0)

	var lines []ncei.Line
	for t := start; t.Before(end); t = t.Add(time.Minute) {
		hours := t.Sub(start).Hours()
		base := 30.0 + 0.04*math.Sin(2*math.Pi*hours/12.42)

		var p [3]string
		for i := range p {
			if rng.Float64() < opts.gapRate {
				continue
			}
			p[i] = strconv.FormatFloat(base+rng.NormFloat64()*0.002, 'f', 3, 64)
		}

		l := ncei.Line{
			WBAN:     opts.wban,
			Station:  opts.station,
			Local:    t,
			Pressure: p,
			Temp:     strconv.Itoa(60 + int(8*math.Sin(2*math.Pi*(hours-9)/24))),
			Dewpoint: "57",
		}
		if opts.dropTemp {
			l.Temp = ""
		}
		lines = append(lines, l)
	}
	return lines
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeExtract(path string, series domain.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := csvstore.WriteSeries(w, series); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
