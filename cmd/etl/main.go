package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/git"
	httpadapter "github.com/couchcryptid/asos-pressure-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/asos-pressure-etl/internal/adapter/kafka"
	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/ncei"
	"github.com/couchcryptid/asos-pressure-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/asos-pressure-etl/internal/config"
	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
	"github.com/couchcryptid/asos-pressure-etl/internal/observability"
	"github.com/couchcryptid/asos-pressure-etl/internal/pipeline"
	"github.com/couchcryptid/asos-pressure-etl/internal/scheduler"
)

const pushJob = "pressure_etl"

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := csvstore.New(cfg.ArchiveDir, cfg.Station, cfg.LedgerFile)
	fetcher := ncei.NewClient(cfg.SourceBaseURL, cfg.SourcePrefix, cfg.Station, cfg.FetchTimeout, logger)
	transformer := pipeline.NewTransformer(domain.NewParser(cfg.Layout(), cfg.StationZone), logger)

	opts := []pipeline.Option{pipeline.WithStartAfter(cfg.StartAfter)}

	if cfg.GitEnabled {
		publisher := git.NewPublisher(git.Options{
			RepoDir:     cfg.GitRepoDir,
			Remote:      cfg.GitRemote,
			Push:        cfg.GitPush,
			AuthorName:  cfg.GitAuthorName,
			AuthorEmail: cfg.GitAuthorEmail,
			Token:       cfg.GitToken,
		}, clockwork.NewRealClock(), logger)
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("git publishing enabled", "repo", cfg.GitRepoDir, "remote", cfg.GitRemote, "push", cfg.GitPush)
	} else {
		logger.Info("git publishing disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithNotifier(writer))
		logger.Info("ingest notifications enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.RunLogPath != "" {
		runLog, err := sqlite.Open(cfg.RunLogPath)
		if err != nil {
			logger.Error("failed to open run log", "error", err)
			return 1
		}
		defer func() {
			if err := runLog.Close(); err != nil {
				logger.Error("run log close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithRecorder(runLog))
	}

	p := pipeline.New(cfg.Station, fetcher, transformer, store, logger, metrics, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunSchedule == "" {
		return runOnce(ctx, cfg, p, logger)
	}
	return serve(ctx, cfg, p, logger)
}

// runOnce ingests at most one month. Exit code 0 covers both an ingested
// and a not-yet-published month.
func runOnce(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	out, err := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if perr := observability.Push(pushCtx, cfg.PushgatewayURL, pushJob, prometheus.DefaultGatherer); perr != nil {
			logger.Warn("metrics push failed", "error", perr)
		}
	}

	if err != nil {
		return 1
	}
	logger.Info("run complete", "run_id", out.RunID, "status", out.Status, "month", out.Month.String())
	return 0
}

func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched := scheduler.New(cfg.RunSchedule, p, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
