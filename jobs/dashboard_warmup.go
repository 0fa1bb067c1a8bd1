package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklens/stocklens/internal/dashboard"
	"github.com/stocklens/stocklens/internal/jobmetrics"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardWarmupJob pre-populates the dashboard cache for active
// organizations so the first request after an invalidation stays fast.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Repo      dashboard.Repository
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(svc *dashboard.Service, repo dashboard.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: svc, Repo: repo, Logger: logger, Metrics: metrics}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if jsonErr := json.Unmarshal(t.Payload(), &payload); jsonErr != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()
	logger.Info("starting dashboard warmup")

	ids := payload.OrganizationIDs
	if len(ids) == 0 {
		ids, err = j.fetchOrganizations(ctx)
		if err != nil {
			logger.Error("load warmup organizations", slog.Any("error", err))
			return err
		}
	}
	if len(ids) == 0 {
		logger.Info("no organizations discovered for warmup")
		return nil
	}

	start := time.Now()
	warmed := 0
	for _, id := range ids {
		if err = j.warmOrganization(ctx, id); err != nil {
			logger.Error("warm organization", slog.Int64("org", id), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed dashboard warmup", slog.Int("organizations", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *DashboardWarmupJob) warmOrganization(ctx context.Context, organizationID int64) error {
	// Bound each organization so one slow tenant cannot stall the run.
	orgCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	return j.Dashboard.Warm(orgCtx, organizationID)
}

func (j *DashboardWarmupJob) fetchOrganizations(ctx context.Context) ([]int64, error) {
	if j.Repo == nil {
		return nil, errors.New("dashboard warmup: repository not configured")
	}
	return j.Repo.ActiveOrganizationIDs(ctx)
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// DashboardBumpJob invalidates the dashboard cache version.
type DashboardBumpJob struct {
	Cache   *dashboard.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDashboardBumpJob wires dependencies for the bump handler.
func NewDashboardBumpJob(cache *dashboard.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardBumpJob {
	return &DashboardBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes cache invalidation tasks.
func (j *DashboardBumpJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("dashboard bump: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDashboardBump)
	return tracker.End(j.Cache.Bump(ctx))
}
