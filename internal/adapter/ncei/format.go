package ncei

import (
	"strings"
	"time"
)

// Line is one page-2 observation in source form.
type Line struct {
	WBAN     string
	Station  string
	Local    time.Time // station standard time
	Pressure [3]string
	Temp     string
	Dewpoint string
}

// Field offsets of page-2 files as published.
const (
	lineWidth   = 102
	colStation  = 0
	colDateTime = 10
	colNote1    = 31
	colNote2    = 38
	colNote3    = 44
	colPres1    = 70
	colPres2    = 78
	colPres3    = 86
	colTemp     = 95
	colDewpoint = 100
)

// FormatLine renders l the way NCEI lays out page-2 lines, e.g.
//
//	12838KMLB MLB2017010100000500   0.102  N     0.095 ...  30.065  30.070  30.065    62   57
func FormatLine(l Line) string {
	b := []byte(strings.Repeat(" ", lineWidth))
	put := func(at int, s string) { copy(b[at:], s) }

	call := l.Station
	if len(call) == 4 {
		call = call[1:]
	}
	put(colStation, l.WBAN+l.Station)
	put(colDateTime, call+l.Local.Format("200601021504")+"0500")
	put(colNote1, "0.102")
	put(colNote2, "N")
	put(colNote3, "0.095")
	put(colPres1, l.Pressure[0])
	put(colPres2, l.Pressure[1])
	put(colPres3, l.Pressure[2])
	put(colTemp, l.Temp)
	put(colDewpoint, l.Dewpoint)
	return strings.TrimRight(string(b), " ")
}

// FormatFile joins rendered lines into file content.
func FormatFile(lines []Line) []byte {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(FormatLine(l))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
