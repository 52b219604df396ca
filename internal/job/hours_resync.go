package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
)

const defaultRunTimeout = 30 * time.Minute

// HoursResyncJob periodically recomputes every student's accumulated hours
// from completed attendance records.
type HoursResyncJob struct {
	cron    *cron.Cron
	hours   service.HoursService
	timeout time.Duration
	logger  *zap.Logger
}

// NewHoursResyncJob schedules the resync on a standard 5-field cron spec
// evaluated in loc. Overlapping runs are skipped.
func NewHoursResyncJob(spec string, loc *time.Location, hours service.HoursService, logger *zap.Logger) (*HoursResyncJob, error) {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger.Sugar()}
	j := &HoursResyncJob{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		hours:   hours,
		timeout: defaultRunTimeout,
		logger:  logger,
	}
	if _, err := j.cron.AddFunc(spec, j.Run); err != nil {
		return nil, fmt.Errorf("schedule hours resync %q: %w", spec, err)
	}
	return j, nil
}

// Start runs the scheduler in its own goroutine.
func (j *HoursResyncJob) Start() {
	j.cron.Start()
	j.logger.Info("hours resync job scheduled")
}

// Stop halts scheduling and waits for a running pass, up to ctx.
func (j *HoursResyncJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("hours resync still running at shutdown")
	}
}

// Run performs one full pass.
func (j *HoursResyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	report, err := j.hours.ResyncAll(ctx)
	if err != nil {
		j.logger.Error("hours resync aborted", zap.Error(err))
	}
	if report == nil {
		return
	}
	j.logger.Info("hours resync finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("drifted", report.Drifted),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)))
}

// cronLogger routes scheduler logs to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
