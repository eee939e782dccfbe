package metrics

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

// MetricsRepository reads the per-worker rolling performance snapshot. The
// metrics themselves are maintained by an upstream collector; this store is
// read-only input to scoring.
type MetricsRepository interface {
	GetSnapshot(warehouse string) ([]models.WorkerMetrics, error)
}

type metricsRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) MetricsRepository {
	return &metricsRepository{Repo: r}
}

// GetSnapshot returns metrics for every active worker in the warehouse.
// Inactive workers are filtered here so the scorer never sees them.
func (r *metricsRepository) GetSnapshot(warehouse string) ([]models.WorkerMetrics, error) {
	var snapshot []models.WorkerMetrics

	query := r.Repo.GoquDBWrapper.
		Select(
			goqu.I("w.id").As("worker_id"),
			goqu.I("w.name").As("worker_name"),
			goqu.I("m.open_task_count").As("open_task_count"),
			goqu.I("m.efficiency_score").As("efficiency_score"),
			goqu.I("m.avg_completion_minutes").As("avg_completion_minutes"),
			goqu.I("m.idle_percent").As("idle_percent"),
		).
		From(goqu.T("workers").As("w")).
		Join(
			goqu.T("worker_metrics").As("m"),
			goqu.On(goqu.Ex{"m.worker_id": goqu.I("w.id")}),
		).
		Where(goqu.Ex{
			"w.active":    true,
			"w.warehouse": warehouse,
		}).
		Order(goqu.I("w.id").Asc())

	if err := query.Executor().ScanStructs(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to fetch worker metrics: %w", err)
	}

	return snapshot, nil
}
