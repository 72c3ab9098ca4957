package ncei

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

var est = time.FixedZone("EST", -5*60*60)

func TestFormatLine_FixedColumns(t *testing.T) {
	line := FormatLine(Line{
		WBAN:     "12838",
		Station:  "KMLB",
		Local:    time.Date(2017, time.January, 1, 0, 5, 0, 0, est),
		Pressure: [3]string{"30.065", "30.070", "30.060"},
		Temp:     "62",
		Dewpoint: "57",
	})

	assert.Equal(t, "12838KMLB", line[0:9])
	assert.Equal(t, "201701010005", line[13:25])
	assert.Equal(t, "30.065", line[70:76])
	assert.Equal(t, "30.070", line[78:84])
	assert.Equal(t, "30.060", line[86:92])
}

func TestFormatFile_ParsesWithInferredColumns(t *testing.T) {
	start := time.Date(2017, time.January, 1, 0, 0, 0, 0, est)
	var lines []Line
	for i := range 10 {
		lines = append(lines, Line{
			WBAN:     "12838",
			Station:  "KMLB",
			Local:    start.Add(time.Duration(i) * time.Minute),
			Pressure: [3]string{"29.920", "29.920", "29.920"},
			Temp:     "62",
			Dewpoint: "57",
		})
	}

	res, err := domain.NewParser(domain.DefaultLayout(), est).ParseRecords(FormatFile(lines))
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyInferred, res.Strategy)
	require.Len(t, res.Records, 10)
	assert.Equal(t, time.Date(2017, time.January, 1, 5, 0, 0, 0, time.UTC), res.Records[0].Time)
}
