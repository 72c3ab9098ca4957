package domain

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Strategy names the slicing strategy that produced a batch.
type Strategy string

const (
	// StrategyInferred slices lines by column boundaries inferred from the
	// file's own whitespace.
	StrategyInferred Strategy = "inferred"
	// StrategyFixed slices lines by the layout's fixed character offsets.
	StrategyFixed Strategy = "fixed"
)

// ColumnSpec is a half-open character range [Start, End) of a source line.
type ColumnSpec struct {
	Start int
	End   int
}

// slice returns the trimmed text of the range, clipped to the line.
func (c ColumnSpec) slice(line string) string {
	if c.Start >= len(line) {
		return ""
	}
	end := min(c.End, len(line))
	return strings.TrimSpace(line[c.Start:end])
}

// Layout describes one revision of the fixed-width source format.
type Layout struct {
	// Columns names the whitespace-separated fields of a line, in order.
	Columns []string
	// DateTimeColumn and PressureColumns index into Columns.
	DateTimeColumn  int
	PressureColumns [3]int

	// TimestampOffset and TimestampWidth locate the local timestamp inside
	// the DateTime field, which is prefixed with the three-letter station id.
	TimestampOffset int
	TimestampWidth  int
	TimestampLayout string

	// FixedTimestamp and FixedPressure are absolute line offsets used when
	// inference fails.
	FixedTimestamp ColumnSpec
	FixedPressure  [3]ColumnSpec

	// InferRows is how many leading lines take part in column inference.
	InferRows int
}

// DefaultLayout returns the layout of the ASOS one-minute page-2 files.
func DefaultLayout() Layout {
	return Layout{
		Columns:         []string{"Station", "DateTime", "Note1", "Note2", "Note3", "Pres1", "Pres2", "Pres3", "Tmp", "Dwpt"},
		DateTimeColumn:  1,
		PressureColumns: [3]int{5, 6, 7},
		TimestampOffset: 3,
		TimestampWidth:  12,
		TimestampLayout: "200601021504",
		FixedTimestamp:  ColumnSpec{Start: 13, End: 25},
		FixedPressure:   [3]ColumnSpec{{Start: 70, End: 76}, {Start: 78, End: 84}, {Start: 86, End: 92}},
		InferRows:       100,
	}
}

// ParseResult is the outcome of parsing one source file.
type ParseResult struct {
	Records  []ObservationRecord
	Strategy Strategy
	// PrimaryErr is the inference failure that triggered the fixed-column
	// fallback, nil when inference succeeded.
	PrimaryErr error
}

// Parser turns raw source text into observation records.
type Parser struct {
	layout Layout
	zone   *time.Location
}

// NewParser creates a Parser. zone is the station's local standard time,
// a fixed offset without daylight saving.
func NewParser(layout Layout, zone *time.Location) *Parser {
	return &Parser{layout: layout, zone: zone}
}

// ParseRecords parses a whole file. It tries inferred columns first; if any
// line is malformed it re-parses the entire file with fixed columns. A
// malformed line under the fixed layout is returned as a fatal error.
func (p *Parser) ParseRecords(text []byte) (ParseResult, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return ParseResult{}, ErrEmptySource
	}

	raws, err := p.SliceInferred(lines)
	if err == nil {
		var records []ObservationRecord
		records, err = p.coerceAll(raws)
		if err == nil {
			return ParseResult{Records: records, Strategy: StrategyInferred}, nil
		}
	}
	if !errors.Is(err, ErrMalformedRecord) {
		return ParseResult{}, err
	}

	primaryErr := err
	records, err := p.coerceAll(p.SliceFixed(lines))
	if err != nil {
		return ParseResult{}, fmt.Errorf("fixed-column fallback (inferred columns: %v): %w", primaryErr, err)
	}
	return ParseResult{Records: records, Strategy: StrategyFixed, PrimaryErr: primaryErr}, nil
}

// SourceLine is a non-blank line of the source file with its 1-based number.
type SourceLine struct {
	Number int
	Text   string
}

func splitLines(text []byte) []SourceLine {
	var lines []SourceLine
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, SourceLine{Number: n, Text: line})
	}
	return lines
}

// InferColumns finds column boundaries from the first rows lines: every
// position holding a non-blank character in any sampled line belongs to a
// column, and each maximal run of such positions is one column.
func InferColumns(lines []SourceLine, rows int) []ColumnSpec {
	var used []bool
	for i, l := range lines {
		if rows > 0 && i >= rows {
			break
		}
		if len(l.Text) > len(used) {
			used = append(used, make([]bool, len(l.Text)-len(used))...)
		}
		for j := 0; j < len(l.Text); j++ {
			if l.Text[j] != ' ' && l.Text[j] != '\t' {
				used[j] = true
			}
		}
	}

	var specs []ColumnSpec
	start := -1
	for j, u := range used {
		switch {
		case u && start < 0:
			start = j
		case !u && start >= 0:
			specs = append(specs, ColumnSpec{Start: start, End: j})
			start = -1
		}
	}
	if start >= 0 {
		specs = append(specs, ColumnSpec{Start: start, End: len(used)})
	}
	return specs
}

// SliceInferred slices lines along inferred column boundaries. The inferred
// column count must match the layout, otherwise fields would be assigned to
// the wrong names and the file is treated as malformed.
func (p *Parser) SliceInferred(lines []SourceLine) ([]RawObservation, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	specs := InferColumns(lines, p.layout.InferRows)
	if len(specs) != len(p.layout.Columns) {
		return nil, &MalformedRecordError{
			Line: lines[0].Number,
			Err:  fmt.Errorf("inferred %d columns, layout has %d", len(specs), len(p.layout.Columns)),
		}
	}

	out := make([]RawObservation, 0, len(lines))
	for _, l := range lines {
		token := specs[p.layout.DateTimeColumn].slice(l.Text)
		raw := RawObservation{
			Line:      l.Number,
			Station:   specs[0].slice(l.Text),
			Timestamp: substring(token, p.layout.TimestampOffset, p.layout.TimestampWidth),
		}
		for i, col := range p.layout.PressureColumns {
			raw.Pressure[i] = specs[col].slice(l.Text)
		}
		out = append(out, raw)
	}
	return out, nil
}

// SliceFixed slices lines at the layout's fixed character offsets.
func (p *Parser) SliceFixed(lines []SourceLine) []RawObservation {
	out := make([]RawObservation, 0, len(lines))
	for _, l := range lines {
		raw := RawObservation{
			Line:      l.Number,
			Timestamp: p.layout.FixedTimestamp.slice(l.Text),
		}
		if fields := strings.Fields(l.Text); len(fields) > 0 {
			raw.Station = fields[0]
		}
		for i, spec := range p.layout.FixedPressure {
			raw.Pressure[i] = spec.slice(l.Text)
		}
		out = append(out, raw)
	}
	return out
}

func substring(s string, offset, width int) string {
	if offset >= len(s) {
		return ""
	}
	return s[offset:min(offset+width, len(s))]
}

func (p *Parser) coerceAll(raws []RawObservation) ([]ObservationRecord, error) {
	out := make([]ObservationRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := p.Coerce(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Coerce converts sliced fields into a record. The timestamp is read as
// station standard time and converted to UTC; a bad timestamp is a
// MalformedRecordError. Non-numeric pressures become missing.
func (p *Parser) Coerce(raw RawObservation) (ObservationRecord, error) {
	if len(raw.Timestamp) != len(p.layout.TimestampLayout) {
		return ObservationRecord{}, &MalformedRecordError{
			Line: raw.Line,
			Err:  fmt.Errorf("timestamp %q: want %d digits", raw.Timestamp, len(p.layout.TimestampLayout)),
		}
	}
	local, err := time.ParseInLocation(p.layout.TimestampLayout, raw.Timestamp, p.zone)
	if err != nil {
		return ObservationRecord{}, &MalformedRecordError{Line: raw.Line, Err: err}
	}

	rec := ObservationRecord{Time: local.UTC()}
	for i, field := range raw.Pressure {
		rec.Pressure[i] = parseReading(field)
	}
	return rec, nil
}

// parseReading returns nil for blank, non-numeric, or non-finite fields.
func parseReading(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
