package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentloop/internal/clock"
	entitlementdomain "github.com/smallbiznis/talentloop/internal/entitlement/domain"
	obsmetrics "github.com/smallbiznis/talentloop/internal/observability/metrics"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobExpirePlans = "expire_plans"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log          *zap.Logger
	Entitlements entitlementdomain.Service
	GenID        *snowflake.Node
	Clock        clock.Clock
	Locker       *ratelimit.Locker `optional:"true"`
	Config       Config            `optional:"true"`
}

type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	genID        *snowflake.Node
	clock        clock.Clock
	entitlements entitlementdomain.Service
	locker       *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Entitlements == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		genID:        p.GenID,
		clock:        p.Clock,
		entitlements: p.Entitlements,
		locker:       p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := s.withLeaderLock(ctx, name, fn)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Deadline is a soft timeout; the next tick picks up the rest.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// withLeaderLock runs fn on at most one replica when a locker is configured.
func (s *Scheduler) withLeaderLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	err := s.locker.WithLock(ctx, "scheduler:job:"+name, s.cfg.LeaderLockTTL, fn)
	if errors.Is(err, ratelimit.ErrLockBusy) {
		s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", name), zap.String("reason", "leader_lock_held"))
		return nil
	}
	return err
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpirePlans, func(ctx context.Context) error {
			return s.runJob(ctx, JobExpirePlans, s.cfg.BatchSize, s.cfg.JobTimeout, s.ExpirePlansJob)
		}},
	}

	for _, job := range jobs {
		if s.cfg.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpirePlansJob downgrades lapsed paid plans in batches until a batch comes back short
// or makes no progress.
func (s *Scheduler) ExpirePlansJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobExpirePlans, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		result, err := s.entitlements.ExpirePlans(ctx, s.cfg.BatchSize)
		run.AddProcessed(result.Downgraded)
		schedMetrics.AddBatchProcessed(JobExpirePlans, "entitlements", result.Downgraded)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(ctx, run, "scheduler.expire.failed", JobExpirePlans, err,
				zap.Int("scanned", result.Scanned),
				zap.Int("downgraded", result.Downgraded),
			)
		}
		if result.Conflicts > 0 {
			schedMetrics.IncJobError(JobExpirePlans, entitlementdomain.ErrVersionConflict)
		}
		if result.Scanned < s.cfg.BatchSize || result.Downgraded == 0 {
			break
		}
	}
	return jobErr
}
