package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
	"github.com/couchcryptid/asos-pressure-etl/internal/observability"
)

// Fetcher downloads the raw source file for a month.
type Fetcher interface {
	Fetch(ctx context.Context, ym domain.YearMonth) ([]byte, error)
}

// Transformer turns a raw source file into a normalized batch.
type Transformer interface {
	Transform(ctx context.Context, ym domain.YearMonth, text []byte) (Batch, error)
}

// Store persists the ledger, the archive, and monthly extracts.
type Store interface {
	LoadLedger() (domain.MonthLedger, error)
	SaveLedger(ledger domain.MonthLedger) error
	LoadArchive() (domain.Archive, error)
	SaveArchive(archive domain.Archive) error
	SaveExtract(ym domain.YearMonth, series domain.Series) (string, error)
	Backup() (bool, error)
	ArchivePath() string
	BackupPath() string
	LedgerPath() string
}

// Publisher records written files in version control.
type Publisher interface {
	Publish(ctx context.Context, files []string, message string) error
}

// Notifier announces an ingested month downstream.
type Notifier interface {
	Notify(ctx context.Context, event domain.IngestEvent) error
}

// RunRecorder keeps an audit row per run.
type RunRecorder interface {
	Record(ctx context.Context, rec domain.RunRecord) error
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithPublisher commits and pushes every ingested month.
func WithPublisher(pub Publisher) Option { return func(p *Pipeline) { p.publisher = pub } }

// WithNotifier sends an event for every ingested month.
func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notifier = n } }

// WithRecorder logs every run, whatever its outcome.
func WithRecorder(r RunRecorder) Option { return func(p *Pipeline) { p.recorder = r } }

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithStartAfter seeds an empty ledger: the first run ingests the month
// after ym.
func WithStartAfter(ym domain.YearMonth) Option { return func(p *Pipeline) { p.startAfter = ym } }

// Pipeline ingests the next unprocessed month per Run.
type Pipeline struct {
	station     string
	fetcher     Fetcher
	transformer Transformer
	store       Store
	publisher   Publisher
	notifier    Notifier
	recorder    RunRecorder
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	startAfter  domain.YearMonth

	mu    sync.Mutex // one run at a time
	ready atomic.Bool
	last  atomic.Pointer[domain.Outcome]
}

// New creates a Pipeline with the given stages and observability.
func New(station string, f Fetcher, t Transformer, s Store, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		station:     station,
		fetcher:     f,
		transformer: t,
		store:       s,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed without error.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// LastOutcome returns the outcome of the most recent run, if any.
func (p *Pipeline) LastOutcome() (domain.Outcome, bool) {
	out := p.last.Load()
	if out == nil {
		return domain.Outcome{}, false
	}
	return *out, true
}

// Run ingests the month after the last ledger entry. A month that is not
// published yet is an unavailable outcome, not an error. A publish failure
// returns a *domain.PublishError; the local files stay written.
func (p *Pipeline) Run(ctx context.Context) (domain.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := p.clock.Now()
	out := domain.Outcome{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", out.RunID)

	out, err := p.run(ctx, logger, out)
	if err != nil {
		out.Status = domain.StatusFailed
		logger.Error("run failed", "month", out.Month.String(), "error", err)
	} else {
		p.ready.Store(true)
	}

	finished := p.clock.Now()
	p.metrics.Runs.WithLabelValues(string(out.Status)).Inc()
	p.metrics.RunDuration.Observe(finished.Sub(started).Seconds())

	p.record(ctx, logger, domain.RunRecord{
		Outcome:    out,
		Station:    p.station,
		StartedAt:  started,
		FinishedAt: finished,
		Error:      errorText(err),
	})
	p.last.Store(&out)
	return out, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, out domain.Outcome) (domain.Outcome, error) {
	ledger, err := p.store.LoadLedger()
	if err != nil {
		return out, fmt.Errorf("load ledger: %w", err)
	}
	last, ok := ledger.Last()
	if !ok {
		if p.startAfter.IsZero() {
			return out, domain.ErrEmptyLedger
		}
		last = p.startAfter
	}

	ym := domain.NextMonth(last)
	out.Month = ym
	logger = logger.With("month", ym.String())
	logger.Info("run started")

	text, err := p.fetcher.Fetch(ctx, ym)
	if errors.Is(err, domain.ErrDataUnavailable) {
		logger.Info("data not available yet", "reason", err)
		out.Status = domain.StatusUnavailable
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("fetch: %w", err)
	}

	batch, err := p.transformer.Transform(ctx, ym, text)
	if err != nil {
		return out, err
	}
	p.metrics.RecordsParsed.Add(float64(batch.Records))
	if batch.Strategy == domain.StrategyFixed {
		p.metrics.ParseFallbacks.Inc()
	}

	archive, err := p.store.LoadArchive()
	if err != nil {
		return out, fmt.Errorf("load archive: %w", err)
	}
	merged := domain.Merge(archive, batch.Series)
	nextLedger, err := ledger.Append(ym)
	if err != nil {
		return out, err
	}

	files, err := p.persist(ym, batch.Series, merged, nextLedger)
	out.Files = files
	if err != nil {
		return out, err
	}

	out.Status = domain.StatusIngested
	out.Samples = len(batch.Series)
	out.Missing = domain.MissingCount(batch.Series)
	out.Strategy = batch.Strategy
	p.metrics.SamplesWritten.Add(float64(out.Samples))
	p.metrics.MissingSamples.Add(float64(out.Missing))
	p.metrics.ArchiveSamples.Set(float64(len(merged)))

	logger.Info("month archived",
		"records", batch.Records,
		"samples", out.Samples,
		"missing", out.Missing,
		"strategy", batch.Strategy,
		"archive_samples", len(merged),
	)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, files, "Add data for "+ym.String()); err != nil {
			return out, err
		}
		out.Published = true
	}

	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
	p.notify(ctx, logger, ym, batch)
	return out, nil
}

// persist writes the extract, backup, archive, and ledger in that order,
// returning every path written. The ledger goes last so a failure earlier
// leaves the month unrecorded and the next run retries it.
func (p *Pipeline) persist(ym domain.YearMonth, series domain.Series, merged domain.Archive, ledger domain.MonthLedger) ([]string, error) {
	var files []string

	extract, err := p.store.SaveExtract(ym, series)
	if err != nil {
		return files, fmt.Errorf("save extract: %w", err)
	}
	files = append(files, extract)

	backedUp, err := p.store.Backup()
	if err != nil {
		return files, fmt.Errorf("backup archive: %w", err)
	}
	if backedUp {
		files = append(files, p.store.BackupPath())
	}

	if err := p.store.SaveArchive(merged); err != nil {
		return files, fmt.Errorf("save archive: %w", err)
	}
	files = append(files, p.store.ArchivePath())

	if err := p.store.SaveLedger(ledger); err != nil {
		return files, fmt.Errorf("save ledger: %w", err)
	}
	return append(files, p.store.LedgerPath()), nil
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, ym domain.YearMonth, batch Batch) {
	series := batch.Series
	if p.notifier == nil || len(series) == 0 {
		return
	}
	event := domain.IngestEvent{
		ID:          uuid.NewString(),
		Station:     p.station,
		Year:        ym.Year,
		Month:       int(ym.Month),
		Samples:     len(series),
		Missing:     domain.MissingCount(series),
		Strategy:    batch.Strategy,
		First:       series[0].Time,
		Last:        series[len(series)-1].Time,
		ProcessedAt: p.clock.Now().UTC(),
	}
	if err := p.notifier.Notify(ctx, event); err != nil {
		logger.Warn("ingest notification failed", "error", err)
	}
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, rec domain.RunRecord) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		logger.Warn("run log write failed", "error", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
