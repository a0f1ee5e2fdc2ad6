// Package sweeper periodically removes entries that are past their expiry.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 30 * time.Second

// Purger removes entries whose expiry is before the cutoff.
type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper runs Purger.DeleteExpired on a cron schedule. Entries are kept for
// retention after they expire so Stats can still report them.
type Sweeper struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	logger    *zap.Logger
	clock     func() time.Time
}

// New schedules the sweep. schedule accepts standard cron specs and
// descriptors such as "@every 1m".
func New(purger Purger, schedule string, retention time.Duration, logger *zap.Logger) (*Sweeper, error) {
	cl := cronLogger{logger.Sugar()}
	s := &Sweeper{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		purger:    purger,
		retention: retention,
		logger:    logger,
		clock:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.logger.Info("expiry sweep started", zap.Duration("retention", s.retention))
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep or ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("expiry sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce removes entries that expired more than retention ago.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.clock().Add(-s.retention)

	removed, err := s.purger.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired entries removed", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	} else {
		s.logger.Debug("expiry sweep found nothing", zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
