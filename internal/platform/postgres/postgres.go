// Package postgres opens the sandbox database through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	pingTimeout   = 5 * time.Second
	maxOpenConns  = 10
	slowThreshold = 200 * time.Millisecond
)

// ErrNoDSN is returned by Connect when no DSN is configured.
var ErrNoDSN = errors.New("postgres DSN is empty")

// Connect opens a pool and pings it. Driver errors are translated so unique
// violations match gorm.ErrDuplicatedKey.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	return connect(ctx, dsn, gormlogger.Discard)
}

func connect(ctx context.Context, dsn string, log gormlogger.Interface) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// ConnectOptional dials dsn and returns the DB plus its close function. An
// empty DSN or a failed dial is logged and yields a nil DB, so callers keep
// the in-memory sandbox store.
func ConnectOptional(ctx context.Context, dsn string, logger *slog.Logger) (*gorm.DB, func()) {
	noop := func() {}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := connect(ctx, dsn, gormlogger.New(slogWriter{logger}, gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	}))
	switch {
	case errors.Is(err, ErrNoDSN):
		logger.Warn("POSTGRES_DSN not set, using the in-memory sandbox store")
		return nil, noop
	case err != nil:
		logger.Warn("postgres unavailable, using the in-memory sandbox store", slog.String("error", err.Error()))
		return nil, noop
	}
	sqlDB, _ := db.DB()
	logger.Info("postgres connection established")
	return db, func() { _ = sqlDB.Close() }
}

// slogWriter feeds GORM's slow-query and error lines into slog.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn("gorm", slog.String("message", fmt.Sprintf(format, args...)))
}
