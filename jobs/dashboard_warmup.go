package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fikrimamdouh/ElectronAccount-sub000/internal/jobs"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/reports"
)

// DashboardWarmupJob pre-populates the report caches so the first request
// after a cache bump does not pay the build cost.
type DashboardWarmupJob struct {
	Reports *reports.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(reportsSvc *reports.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Reports: reportsSvc, Logger: logger, Metrics: metrics}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("dashboard warmup: handler not configured")
	}

	tracker := j.Metrics.Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if _, err := j.Reports.Dashboard(ctx); err != nil {
		resultErr = err
		return err
	}
	if _, err := j.Reports.TrialBalance(ctx); err != nil {
		resultErr = err
		return err
	}
	j.Logger.Info("report caches warmed")
	return nil
}
