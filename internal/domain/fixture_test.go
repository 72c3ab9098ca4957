package domain

import (
	"strings"
	"time"
)

const (
	testStation = "KMLB"
	testWBAN    = "12838"
)

var est = time.FixedZone("EST", -5*60*60)

// sourceLine renders one page-2 line with fields at their usual offsets.
// local is the station standard time as YYYYMMDDHHMM.
func sourceLine(local, p1, p2, p3 string) string {
	b := []byte(strings.Repeat(" ", 102))
	put := func(at int, s string) { copy(b[at:], s) }
	put(0, testWBAN+testStation)
	put(10, testStation[1:]+local+"0500")
	put(31, "0.102")
	put(38, "N")
	put(44, "0.095")
	put(70, p1)
	put(78, p2)
	put(86, p3)
	put(95, "62")
	put(100, "57")
	return string(b)
}

// misalignedLine renders a line whose station and DateTime fields run
// together, which breaks column inference for the whole file.
func misalignedLine(local, p1, p2, p3 string) string {
	b := []byte(sourceLine(local, p1, p2, p3))
	b[9] = '0'
	return string(b)
}

func sourceText(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func ptr(v float64) *float64 { return &v }
