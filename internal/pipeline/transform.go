package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Batch is one month of source data parsed and normalized.
type Batch struct {
	Series   domain.Series
	Strategy domain.Strategy
	Records  int
}

// MonthTransformer implements Transformer with the domain parser and
// normalizer.
type MonthTransformer struct {
	parser *domain.Parser
	logger *slog.Logger
}

// NewTransformer creates a MonthTransformer around a configured parser.
func NewTransformer(parser *domain.Parser, logger *slog.Logger) *MonthTransformer {
	return &MonthTransformer{
		parser: parser,
		logger: logger,
	}
}

func (t *MonthTransformer) Transform(_ context.Context, ym domain.YearMonth, text []byte) (Batch, error) {
	res, err := t.parser.ParseRecords(text)
	if err != nil {
		return Batch{}, fmt.Errorf("parse %s: %w", ym, err)
	}
	if res.Strategy == domain.StrategyFixed {
		t.logger.Warn("column inference failed, parsed with fixed columns",
			"month", ym.String(),
			"error", res.PrimaryErr,
		)
	}

	return Batch{
		Series:   domain.Normalize(res.Records),
		Strategy: res.Strategy,
		Records:  len(res.Records),
	}, nil
}
