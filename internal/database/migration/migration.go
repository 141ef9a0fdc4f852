package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var FS embed.FS

const dir = "sql"

// Up applies every pending embedded migration. Already applied versions are skipped by goose's
// version table, so calling it on every boot is safe.
func Up(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	log.Info("db_migration_start")
	if err := goose.UpContext(ctx, db, dir); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("migrate up: %w", err)
	}

	log.Info("db_migration_success", zap.Duration("duration", time.Since(start)))
	return nil
}

// gooseLogger routes goose output through zap; Fatalf is downgraded so a bad migration
// surfaces as an error from Up instead of exiting the process.
type gooseLogger struct{ s *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.s.Infof(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.s.Errorf(strings.TrimSpace(format), v...)
}
