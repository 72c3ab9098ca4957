package domain

import (
	"sort"
	"time"
)

const (
	// GridStep is the spacing of the normalized series.
	GridStep = 5 * time.Minute

	// InHgToPa converts inches of mercury to pascals.
	InHgToPa = 3386.38816

	// MSLPOffsetPa is the fixed station-elevation correction added to
	// station pressure to approximate mean sea-level pressure.
	MSLPOffsetPa = 200.0
)

// Normalize deduplicates records by timestamp (first occurrence in input
// order wins), resamples them onto the 5-minute grid that starts at the first
// timestamp and ends at or before the last one, and derives station and sea-level pressure in pascals.
// Grid slots without a source record are kept as missing samples.
func Normalize(records []ObservationRecord) Series {
	if len(records) == 0 {
		return nil
	}

	byTime := make(map[time.Time]ObservationRecord, len(records))
	times := make([]time.Time, 0, len(records))
	for _, rec := range records {
		t := rec.Time.UTC()
		if _, dup := byTime[t]; dup {
			continue
		}
		byTime[t] = rec
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	first, last := times[0], times[len(times)-1]

	series := make(Series, 0, int(last.Sub(first)/GridStep)+1)
	for t := first; !t.After(last); t = t.Add(GridStep) {
		sample := Sample{Time: t}
		if rec, ok := byTime[t]; ok {
			sample.PressurePa, sample.MSLPPa = derivePressure(rec.Pressure)
		}
		series = append(series, sample)
	}
	return series
}

// derivePressure averages the available readings (inHg) and converts the
// mean to pascals. With no readings available both values are missing.
func derivePressure(readings [3]*float64) (pressure, mslp *float64) {
	var sum float64
	var n int
	for _, r := range readings {
		if r == nil {
			continue
		}
		sum += *r
		n++
	}
	if n == 0 {
		return nil, nil
	}
	pa := sum / float64(n) * InHgToPa
	sl := pa + MSLPOffsetPa
	return &pa, &sl
}
