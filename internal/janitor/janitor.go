// Package janitor retries removal of stored files whose document rows are already gone.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"docrepo/internal/config"
	"docrepo/internal/repository"
	"docrepo/internal/storage"
)

const defaultBatchSize = 50

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Removed int
	Failed  int
}

type Janitor struct {
	cfg     config.JanitorConfig
	orphans repository.OrphanRepository
	store   storage.Storage
	log     *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func New(cfg config.JanitorConfig, orphans repository.OrphanRepository, store storage.Storage, log *zap.Logger) *Janitor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Janitor{
		cfg:     cfg,
		orphans: orphans,
		store:   store,
		log:     log.With(zap.String("component", "janitor")),
	}
}

// Start schedules RunOnce on cfg.Schedule. An empty schedule leaves the janitor off.
// Overlapping runs are skipped rather than queued.
func (j *Janitor) Start(ctx context.Context) error {
	if j.cfg.Schedule == "" {
		j.log.Info("janitor disabled")
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	cl := cronLogger{j.log.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(j.cfg.Schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.log.Error("orphan sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", j.cfg.Schedule, err)
	}
	c.Start()
	j.cron = c
	j.log.Info("janitor started", zap.String("schedule", j.cfg.Schedule), zap.Int("batch_size", j.cfg.BatchSize))
	return nil
}

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce retries up to BatchSize orphans, oldest first. A key already missing from the
// store counts as removed.
func (j *Janitor) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	items, err := j.orphans.ListOrphans(ctx, j.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("list orphans: %w", err)
	}

	for _, o := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++

		err := j.store.Delete(ctx, o.FilePath)
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			res.Failed++
			j.log.Warn("orphan removal failed",
				zap.Int64("orphan_id", o.ID),
				zap.String("file_path", o.FilePath),
				zap.Int("attempts", o.Attempts+1),
				zap.Error(err),
			)
			if bErr := j.orphans.BumpAttempts(ctx, o.ID); bErr != nil {
				j.log.Error("bump orphan attempts", zap.Int64("orphan_id", o.ID), zap.Error(bErr))
			}
			continue
		}

		if err := j.orphans.DeleteOrphan(ctx, o.ID); err != nil {
			// file is gone; the next sweep deletes it again as a no-op and retries the row
			res.Failed++
			j.log.Error("delete orphan row", zap.Int64("orphan_id", o.ID), zap.Error(err))
			continue
		}
		res.Removed++
	}

	if res.Scanned > 0 {
		j.log.Info("orphan sweep finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("removed", res.Removed),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
