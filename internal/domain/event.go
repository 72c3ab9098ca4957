package domain

import (
	"fmt"
	"time"
)

// YearMonth identifies one calendar month of source data.
type YearMonth struct {
	Year  int
	Month time.Month
}

// String renders the month the way operators read it in logs and commit
// messages, e.g. "01/2017".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%02d/%04d", int(ym.Month), ym.Year)
}

// Key renders the compact YYYYMM form used in file names.
func (ym YearMonth) Key() string {
	return fmt.Sprintf("%04d%02d", ym.Year, int(ym.Month))
}

// Before reports whether ym is an earlier calendar month than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// IsZero reports whether ym is the zero value.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// RawObservation holds the text fields sliced out of one source line.
// Notes, temperature and dewpoint are discarded at slicing time.
type RawObservation struct {
	Line      int
	Station   string
	Timestamp string
	Pressure  [3]string
}

// ObservationRecord is a coerced source line. Time is in UTC; a nil
// pressure means the source field was missing or non-numeric.
type ObservationRecord struct {
	Time     time.Time
	Pressure [3]*float64
}

// Sample is one 5-minute slot of the normalized series. Nil values are
// persisted as the missing sentinel.
type Sample struct {
	Time       time.Time
	PressurePa *float64
	MSLPPa     *float64
}

// Missing reports whether the slot carries no pressure value.
func (s Sample) Missing() bool {
	return s.PressurePa == nil
}

// Series is a normalized batch: unique timestamps on the 5-minute grid,
// ascending.
type Series []Sample

// Archive is the cumulative history: unique timestamps, ascending.
type Archive []Sample

// MissingCount returns the number of slots without a pressure value.
func MissingCount(samples []Sample) int {
	n := 0
	for _, s := range samples {
		if s.Missing() {
			n++
		}
	}
	return n
}

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusIngested    Status = "ingested"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// Outcome summarizes a pipeline run.
type Outcome struct {
	RunID     string
	Status    Status
	Month     YearMonth
	Samples   int
	Missing   int
	Strategy  Strategy
	Files     []string
	Published bool
}

// RunRecord is the audit row kept for every run.
type RunRecord struct {
	Outcome
	Station    string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// IngestEvent announces a newly archived month to downstream consumers.
type IngestEvent struct {
	ID          string    `json:"id"`
	Station     string    `json:"station"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Samples     int       `json:"samples"`
	Missing     int       `json:"missing"`
	Strategy    Strategy  `json:"strategy"`
	First       time.Time `json:"first"`
	Last        time.Time `json:"last"`
	ProcessedAt time.Time `json:"processed_at"`
}
