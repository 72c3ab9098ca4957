package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

const (
	// TimeLayout renders timestamps as e.g. "01-Jan-2017 05:00:00" (UTC).
	TimeLayout = "02-Jan-2006 15:04:05"

	// MissingSentinel stands in for a missing value.
	MissingSentinel = "999999"

	floatPrecision = 6
)

var seriesHeader = []string{"DateTime", "Pressure (Pa)", "MSLP (Pa)"}

// WriteSeries writes samples in the archive CSV format.
func WriteSeries(w io.Writer, samples []domain.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(seriesHeader); err != nil {
		return err
	}
	row := make([]string, len(seriesHeader))
	for _, s := range samples {
		row[0] = s.Time.UTC().Format(TimeLayout)
		row[1] = formatValue(s.PressurePa)
		row[2] = formatValue(s.MSLPPa)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSeries parses samples written by WriteSeries. An empty input yields no
// samples.
func ReadSeries(r io.Reader) ([]domain.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(seriesHeader)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range seriesHeader {
		if header[i] != name {
			return nil, fmt.Errorf("header column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	var samples []domain.Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		t, err := time.ParseInLocation(TimeLayout, rec[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pa, err := parseValue(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: pressure: %w", line, err)
		}
		mslp, err := parseValue(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: mslp: %w", line, err)
		}
		samples = append(samples, domain.Sample{Time: t, PressurePa: pa, MSLPPa: mslp})
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return MissingSentinel
	}
	return strconv.FormatFloat(*v, 'f', floatPrecision, 64)
}

func parseValue(s string) (*float64, error) {
	if s == MissingSentinel {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if v == 999999 {
		return nil, nil
	}
	return &v, nil
}
