package pipeline_test

import (
	"time"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/ncei"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

var est = time.FixedZone("EST", -5*60*60)

var (
	dec2016 = domain.YearMonth{Year: 2016, Month: time.December}
	jan2017 = domain.YearMonth{Year: 2017, Month: time.January}
	feb2017 = domain.YearMonth{Year: 2017, Month: time.February}
)

// monthFile renders the first minutes of ym as a page-2 file with a constant
// pressure reading. An empty temp drops a column, which forces the
// fixed-column fallback.
func monthFile(ym domain.YearMonth, minutes int, pressure, temp string) []byte {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, est)
	lines := make([]ncei.Line, 0, minutes)
	for i := range minutes {
		lines = append(lines, ncei.Line{
			WBAN:     "12838",
			Station:  "KMLB",
			Local:    start.Add(time.Duration(i) * time.Minute),
			Pressure: [3]string{pressure, pressure, pressure},
			Temp:     temp,
			Dewpoint: "57",
		})
	}
	return ncei.FormatFile(lines)
}
