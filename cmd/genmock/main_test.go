package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/ncei"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

var est = time.FixedZone("EST", -5*60*60)

func testOptions() options {
	return options{
		month:   domain.YearMonth{Year: 2017, Month: time.February},
		station: "KMLB",
		wban:    "12838",
		prefix:  "6406",
		utc:     -5 * time.Hour,
		seed:    7,
	}
}

func TestGenerate_OneLinePerMinute(t *testing.T) {
	lines := generate(testOptions(), est)
	require.Len(t, lines, 28*24*60)
	assert.Equal(t, time.Date(2017, time.February, 1, 0, 0, 0, 0, est), lines[0].Local)
	assert.Equal(t, time.Date(2017, time.February, 28, 23, 59, 0, 0, est), lines[len(lines)-1].Local)
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := testOptions()
	opts.gapRate = 0.1
	assert.Equal(t, generate(opts, est), generate(opts, est))
}

func TestGenerate_ParsesAndNormalizes(t *testing.T) {
	text := ncei.FormatFile(generate(testOptions(), est))

	res, err := domain.NewParser(domain.DefaultLayout(), est).ParseRecords(text)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyInferred, res.Strategy)

	series := domain.Normalize(res.Records)
	require.Len(t, series, 28*24*12)
	assert.Zero(t, domain.MissingCount(series))
}

func TestGenerate_DropTempForcesFallback(t *testing.T) {
	opts := testOptions()
	opts.dropTemp = true
	text := ncei.FormatFile(generate(opts, est))

	res, err := domain.NewParser(domain.DefaultLayout(), est).ParseRecords(text)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFixed, res.Strategy)
}
