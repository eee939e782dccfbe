package requisitions

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type RequisitionRepository interface {
	GetRequisition(id int) (*models.Requisition, error)
	GetRequisitions(status string) ([]models.Requisition, error)
	GetCommittedQuantities(requisitionID int) (map[int]float64, error)
	GetStatusForUpdate(tx *goqu.TxDatabase, id int) (string, error)
	UpdateStatus(tx *goqu.TxDatabase, id int, status string) error
}

type requisitionRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) RequisitionRepository {
	return &requisitionRepository{Repo: r}
}

func (r *requisitionRepository) GetRequisition(id int) (*models.Requisition, error) {
	var requisition models.Requisition

	query := r.Repo.GoquDBWrapper.
		Select("id", "document_number", "document_date", "source_warehouse", "destination_store", "status").
		From("requisitions").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&requisition)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "requisition", ID: id}
	}

	items, err := r.getLineItems(id)
	if err != nil {
		return nil, err
	}
	requisition.Items = items

	return &requisition, nil
}

func (r *requisitionRepository) getLineItems(requisitionID int) ([]models.LineItem, error) {
	var items []models.LineItem

	query := r.Repo.GoquDBWrapper.
		Select("id", "requisition_id", "article_code", "article_name", "requested_qty", "picked_qty", "status").
		From("line_items").
		Where(goqu.Ex{"requisition_id": requisitionID}).
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}

	return items, nil
}

func (r *requisitionRepository) GetRequisitions(status string) ([]models.Requisition, error) {
	var requisitions []models.Requisition

	query := r.Repo.GoquDBWrapper.
		Select("id", "document_number", "document_date", "source_warehouse", "destination_store", "status").
		From("requisitions").
		Order(goqu.I("document_date").Desc())

	if status != "" {
		query = query.Where(goqu.Ex{"status": status})
	}

	if err := query.Executor().ScanStructs(&requisitions); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return requisitions, nil
}

// GetCommittedQuantities returns, per line item, the quantity already spoken
// for by work orders: closed allocations count what was actually picked, open
// allocations count in full. Allocation is never decremented on the line item
// itself, so "remaining to allocate" is always recomputed from this sum.
func (r *requisitionRepository) GetCommittedQuantities(requisitionID int) (map[int]float64, error) {
	var rows []struct {
		LineItemID int     `db:"line_item_id"`
		Committed  float64 `db:"committed"`
	}

	query := r.Repo.GoquDBWrapper.
		Select(
			goqu.I("woi.line_item_id").As("line_item_id"),
			goqu.L("SUM(CASE WHEN woi.closed THEN woi.picked_qty ELSE woi.allocated_qty END)").As("committed"),
		).
		From(goqu.T("work_order_items").As("woi")).
		Join(
			goqu.T("work_orders").As("wo"),
			goqu.On(goqu.Ex{"woi.work_order_id": goqu.I("wo.id")}),
		).
		Where(
			goqu.Ex{"wo.requisition_id": requisitionID},
			goqu.I("wo.status").Neq(models.WorkOrderCanceled),
		).
		GroupBy(goqu.I("woi.line_item_id"))

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate allocations: %w", err)
	}

	committed := make(map[int]float64, len(rows))
	for _, row := range rows {
		committed[row.LineItemID] = row.Committed
	}

	return committed, nil
}

func (r *requisitionRepository) GetStatusForUpdate(tx *goqu.TxDatabase, id int) (string, error) {
	var status string

	found, err := tx.Select("status").
		From("requisitions").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait).
		Executor().
		ScanVal(&status)
	if err != nil {
		return "", fmt.Errorf("failed to fetch requisition status: %w", err)
	}
	if !found {
		return "", &apperrors.NotFoundError{Resource: "requisition", ID: id}
	}

	return status, nil
}

func (r *requisitionRepository) UpdateStatus(tx *goqu.TxDatabase, id int, status string) error {
	query := tx.Update("requisitions").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": id})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update requisition %d status: %w", id, err)
	}

	return nil
}
