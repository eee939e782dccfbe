package assignments

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	custom_error "github.com/Doppler617492/MagacinTracker-sub000/pkg/errors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type AssignmentRepository interface {
	GetStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error)
	GetLineItems(tx *goqu.TxDatabase, requisitionID int) ([]models.LineItem, error)
	GetCommittedQuantities(tx *goqu.TxDatabase, requisitionID int) (map[int]float64, error)
	InsertWorkOrder(tx *goqu.TxDatabase, order models.WorkOrder) (int, error)
	InsertWorkOrderItems(tx *goqu.TxDatabase, workOrderID int, items []models.WorkOrderItem) error
	UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error
	GetTeam(teamID int) (*models.Team, error)
}

type assignmentRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) AssignmentRepository {
	return &assignmentRepository{Repo: r}
}

// GetStatusForUpdate takes the requisition row lock: every mutation of one
// requisition serializes here, so concurrent assignments cannot both pass the
// allocation check.
func (r *assignmentRepository) GetStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error) {
	var status string

	found, err := tx.Select("status").
		From("requisitions").
		Where(goqu.Ex{"id": requisitionID}).
		ForUpdate(exp.Wait).
		Executor().
		ScanVal(&status)
	if err != nil {
		return "", fmt.Errorf("failed to fetch requisition status: %w", err)
	}
	if !found {
		return "", &apperrors.NotFoundError{Resource: "requisition", ID: requisitionID}
	}

	return status, nil
}

func (r *assignmentRepository) GetLineItems(tx *goqu.TxDatabase, requisitionID int) ([]models.LineItem, error) {
	var items []models.LineItem

	query := tx.Select("id", "requisition_id", "article_code", "article_name", "requested_qty", "picked_qty", "status").
		From("line_items").
		Where(goqu.Ex{"requisition_id": requisitionID}).
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}

	return items, nil
}

func (r *assignmentRepository) GetCommittedQuantities(tx *goqu.TxDatabase, requisitionID int) (map[int]float64, error) {
	var rows []struct {
		LineItemID int     `db:"line_item_id"`
		Committed  float64 `db:"committed"`
	}

	query := tx.Select(
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

func (r *assignmentRepository) InsertWorkOrder(tx *goqu.TxDatabase, order models.WorkOrder) (int, error) {
	query := tx.Insert("work_orders").
		Rows(goqu.Record{
			"document_number": order.DocumentNumber,
			"requisition_id":  order.RequisitionID,
			"worker_id":       order.WorkerID,
			"priority":        order.Priority,
			"due_at":          order.DueAt,
			"status":          models.WorkOrderOpen,
		}).
		Returning("id")

	var workOrderID int
	if _, err := query.Executor().ScanVal(&workOrderID); err != nil {
		return 0, fmt.Errorf("failed to insert work order: %w", err)
	}

	return workOrderID, nil
}

func (r *assignmentRepository) InsertWorkOrderItems(tx *goqu.TxDatabase, workOrderID int, items []models.WorkOrderItem) error {
	var records []goqu.Record
	for _, item := range items {
		records = append(records, goqu.Record{
			"work_order_id": workOrderID,
			"line_item_id":  item.LineItemID,
			"allocated_qty": item.AllocatedQty,
			"picked_qty":    0,
			"closed":        false,
		})
	}

	query := tx.Insert("work_order_items").Rows(records)

	if _, err := query.Executor().Exec(); err != nil {
		err = custom_error.WrapDBError(err, "duplicate line item within one work order")
		return fmt.Errorf("failed to insert work order items: %w", err)
	}

	return nil
}

func (r *assignmentRepository) UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error {
	query := tx.Update("requisitions").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": requisitionID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update requisition %d status: %w", requisitionID, err)
	}

	return nil
}

func (r *assignmentRepository) GetTeam(teamID int) (*models.Team, error) {
	var team models.Team

	query := r.Repo.GoquDBWrapper.
		Select("id", "worker_a_id", "worker_b_id", "shift", "active").
		From("teams").
		Where(goqu.Ex{"id": teamID})

	found, err := query.Executor().ScanStruct(&team)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team: %w", err)
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "team", ID: teamID}
	}

	return &team, nil
}
