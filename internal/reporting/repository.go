package reporting

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
)

// WorkerFulfillmentRow is one aggregate line of the fulfillment report.
type WorkerFulfillmentRow struct {
	WorkerID         int     `json:"worker_id" db:"worker_id"`
	WorkerName       string  `json:"worker_name" db:"worker_name"`
	Warehouse        string  `json:"warehouse" db:"warehouse"`
	WorkOrdersTotal  int     `json:"work_orders_total" db:"work_orders_total"`
	WorkOrdersDone   int     `json:"work_orders_done" db:"work_orders_done"`
	AllocatedQty     float64 `json:"allocated_qty" db:"allocated_qty"`
	PickedQty        float64 `json:"picked_qty" db:"picked_qty"`
	DiscrepancyCount int     `json:"discrepancy_count" db:"-"`
	MissingQty       float64 `json:"missing_qty" db:"-"`
}

// FillRate is picked over allocated, 1.0 when nothing was allocated yet.
func (r *WorkerFulfillmentRow) FillRate() float64 {
	if r.AllocatedQty <= 0 {
		return 1.0
	}
	return r.PickedQty / r.AllocatedQty
}

type ReportFilter struct {
	Warehouse string
}

type ReportingRepository interface {
	GetWorkerFulfillment(filter ReportFilter) ([]WorkerFulfillmentRow, error)
}

type reportingRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) ReportingRepository {
	return &reportingRepository{Repo: r}
}

// GetWorkerFulfillment aggregates picks and discrepancies per worker. The two
// aggregates run as separate grouped queries; joining discrepancies onto
// work-order items directly would multiply rows and inflate the sums.
func (r *reportingRepository) GetWorkerFulfillment(filter ReportFilter) ([]WorkerFulfillmentRow, error) {
	rows, err := r.workOrderAggregates(filter)
	if err != nil {
		return nil, err
	}

	discrepancies, err := r.discrepancyAggregates()
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if d, ok := discrepancies[rows[i].WorkerID]; ok {
			rows[i].DiscrepancyCount = d.Count
			rows[i].MissingQty = d.MissingQty
		}
	}

	return rows, nil
}

func (r *reportingRepository) workOrderAggregates(filter ReportFilter) ([]WorkerFulfillmentRow, error) {
	var rows []WorkerFulfillmentRow

	query := r.Repo.GoquDBWrapper.
		Select(
			goqu.I("w.id").As("worker_id"),
			goqu.I("w.name").As("worker_name"),
			goqu.I("w.warehouse").As("warehouse"),
			goqu.L("COUNT(DISTINCT wo.id)").As("work_orders_total"),
			goqu.L("COUNT(DISTINCT wo.id) FILTER (WHERE wo.status = 'completed')").As("work_orders_done"),
			goqu.L("COALESCE(SUM(woi.allocated_qty), 0)").As("allocated_qty"),
			goqu.L("COALESCE(SUM(woi.picked_qty), 0)").As("picked_qty"),
		).
		From(goqu.T("workers").As("w")).
		LeftJoin(
			goqu.T("work_orders").As("wo"),
			goqu.On(
				goqu.I("wo.worker_id").Eq(goqu.I("w.id")),
				goqu.I("wo.status").Neq("canceled"),
			),
		).
		LeftJoin(
			goqu.T("work_order_items").As("woi"),
			goqu.On(goqu.I("woi.work_order_id").Eq(goqu.I("wo.id"))),
		).
		GroupBy(goqu.I("w.id"), goqu.I("w.name"), goqu.I("w.warehouse")).
		Order(goqu.I("w.id").Asc())

	if filter.Warehouse != "" {
		query = query.Where(goqu.Ex{"w.warehouse": filter.Warehouse})
	}

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return rows, nil
}

type discrepancyAggregate struct {
	WorkerID   int     `db:"worker_id"`
	Count      int     `db:"discrepancy_count"`
	MissingQty float64 `db:"missing_qty"`
}

func (r *reportingRepository) discrepancyAggregates() (map[int]discrepancyAggregate, error) {
	var rows []discrepancyAggregate

	query := r.Repo.GoquDBWrapper.
		Select(
			goqu.I("worker_id"),
			goqu.COUNT("*").As("discrepancy_count"),
			goqu.L("COALESCE(SUM(missing_qty), 0)").As("missing_qty"),
		).
		From("discrepancies").
		GroupBy(goqu.I("worker_id"))

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	byWorker := make(map[int]discrepancyAggregate, len(rows))
	for _, row := range rows {
		byWorker[row.WorkerID] = row
	}

	return byWorker, nil
}
