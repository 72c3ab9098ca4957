package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	Station         string         `env:"STATION" validate:"required,alphanum,min=3,max=5"`
	SourceBaseURL   string         `env:"SOURCE_BASE_URL" validate:"required,url"`
	SourcePrefix    string         `env:"SOURCE_PREFIX" validate:"required,numeric"`
	FetchTimeout    time.Duration  `env:"FETCH_TIMEOUT" validate:"gt=0"`
	StationZone     *time.Location `validate:"-"`
	TimestampOffset int            `env:"PARSE_TIMESTAMP_OFFSET" validate:"gte=0"`

	ArchiveDir string           `env:"ARCHIVE_DIR" validate:"required"`
	LedgerFile string           `env:"LEDGER_FILE" validate:"required"`
	StartAfter domain.YearMonth `validate:"-"`

	// Version control publishing.
	GitEnabled     bool
	GitRepoDir     string `env:"GIT_REPO_DIR" validate:"required_if=GitEnabled true"`
	GitRemote      string `env:"GIT_REMOTE" validate:"required_if=GitEnabled true"`
	GitPush        bool
	GitAuthorName  string `env:"GIT_AUTHOR_NAME" validate:"required_if=GitEnabled true"`
	GitAuthorEmail string `env:"GIT_AUTHOR_EMAIL" validate:"omitempty,email"`
	GitToken       string `validate:"-"`

	// Optional sinks; empty disables them.
	KafkaBrokers   []string
	KafkaTopic     string `env:"KAFKA_TOPIC" validate:"required_with=KafkaBrokers"`
	RunLogPath     string
	PushgatewayURL string `env:"PUSHGATEWAY_URL" validate:"omitempty,url"`

	// RunSchedule switches to daemon mode when set (cron expression).
	RunSchedule     string
	HTTPAddr        string `env:"HTTP_ADDR" validate:"required"`
	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "60s"))
	if err != nil {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	utcOffset, err := time.ParseDuration(sharedcfg.EnvOrDefault("STATION_UTC_OFFSET", "-5h"))
	if err != nil || utcOffset%time.Minute != 0 || utcOffset < -14*time.Hour || utcOffset > 14*time.Hour {
		return nil, errors.New("invalid STATION_UTC_OFFSET")
	}

	timestampOffset, err := strconv.Atoi(sharedcfg.EnvOrDefault("PARSE_TIMESTAMP_OFFSET", strconv.Itoa(domain.DefaultLayout().TimestampOffset)))
	if err != nil {
		return nil, errors.New("invalid PARSE_TIMESTAMP_OFFSET")
	}

	var startAfter domain.YearMonth
	if v := os.Getenv("START_AFTER"); v != "" {
		if startAfter, err = domain.ParseYearMonth(v); err != nil {
			return nil, fmt.Errorf("invalid START_AFTER: %w", err)
		}
	}

	gitEnabled, err := parseBool("GIT_ENABLED", true)
	if err != nil {
		return nil, err
	}
	gitPush, err := parseBool("GIT_PUSH", true)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		Station:         sharedcfg.EnvOrDefault("STATION", "KMLB"),
		SourceBaseURL:   sharedcfg.EnvOrDefault("SOURCE_BASE_URL", "https://www.ncei.noaa.gov/pub/data/asos-onemin"),
		SourcePrefix:    sharedcfg.EnvOrDefault("SOURCE_PREFIX", "6406"),
		FetchTimeout:    fetchTimeout,
		StationZone:     zoneFor(utcOffset),
		TimestampOffset: timestampOffset,

		ArchiveDir: sharedcfg.EnvOrDefault("ARCHIVE_DIR", "data"),
		LedgerFile: sharedcfg.EnvOrDefault("LEDGER_FILE", "data/processed_months.csv"),
		StartAfter: startAfter,

		GitEnabled:     gitEnabled,
		GitRepoDir:     sharedcfg.EnvOrDefault("GIT_REPO_DIR", "."),
		GitRemote:      sharedcfg.EnvOrDefault("GIT_REMOTE", "origin"),
		GitPush:        gitPush,
		GitAuthorName:  sharedcfg.EnvOrDefault("GIT_AUTHOR_NAME", "asos-pressure-etl"),
		GitAuthorEmail: os.Getenv("GIT_AUTHOR_EMAIL"),
		GitToken:       os.Getenv("GIT_TOKEN"),

		KafkaBrokers:   brokers,
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pressure-archive-ingested"),
		RunLogPath:     os.Getenv("RUN_LOG_PATH"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		RunSchedule:     os.Getenv("RUN_SCHEDULE"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Layout returns the source layout with the configured timestamp offset.
func (c *Config) Layout() domain.Layout {
	l := domain.DefaultLayout()
	l.TimestampOffset = c.TimestampOffset
	return l
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report env var names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(cfg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
	}
	return err
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

// zoneFor names a fixed zone after its offset, e.g. "UTC-05:00".
func zoneFor(offset time.Duration) *time.Location {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	secs := int(offset / time.Second)
	if sign == "-" {
		secs = -secs
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, h, m), secs)
}
