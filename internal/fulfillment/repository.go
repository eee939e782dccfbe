package fulfillment

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

// ClosureRow is the closure-evaluation view of one line item: how much was
// requested and picked, and how many allocations against it are still open.
type ClosureRow struct {
	LineItemID      int     `db:"line_item_id"`
	RequestedQty    float64 `db:"requested_qty"`
	PickedQty       float64 `db:"picked_qty"`
	AllocationCount int     `db:"allocation_count"`
	UnclosedCount   int     `db:"unclosed_count"`
}

// Closable reports whether no further picking will occur for the line item:
// either nothing remains, or every allocation against it was explicitly
// closed (picked fully or a discrepancy filed).
func (r *ClosureRow) Closable() bool {
	if r.RequestedQty-r.PickedQty <= 0 {
		return true
	}
	return r.AllocationCount > 0 && r.UnclosedCount == 0
}

type FulfillmentRepository interface {
	GetWorkOrderForUpdate(tx *goqu.TxDatabase, workOrderID int) (*models.WorkOrder, error)
	GetWorkOrderItemForUpdate(tx *goqu.TxDatabase, workOrderID, lineItemID int) (*models.WorkOrderItem, error)
	AddPick(tx *goqu.TxDatabase, workOrderItemID, lineItemID int, qty float64) error
	CloseWorkOrderItem(tx *goqu.TxDatabase, workOrderItemID int) error
	CountUnclosedItems(tx *goqu.TxDatabase, workOrderID int) (int, error)
	UpdateWorkOrderStatus(tx *goqu.TxDatabase, workOrderID int, status string) error
	InsertDiscrepancy(tx *goqu.TxDatabase, discrepancy models.Discrepancy) (int, error)
	GetRequisitionStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error)
	UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error
	GetClosureRows(tx *goqu.TxDatabase, requisitionID int) ([]ClosureRow, error)
	GetWorkOrder(workOrderID int) (*models.WorkOrder, error)
}

type fulfillmentRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) FulfillmentRepository {
	return &fulfillmentRepository{Repo: r}
}

func (r *fulfillmentRepository) GetWorkOrderForUpdate(tx *goqu.TxDatabase, workOrderID int) (*models.WorkOrder, error) {
	var order models.WorkOrder

	query := tx.Select("id", "document_number", "requisition_id", "worker_id", "priority", "due_at", "status").
		From("work_orders").
		Where(goqu.Ex{"id": workOrderID}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&order)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work order: %w", err)
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "work order", ID: workOrderID}
	}

	return &order, nil
}

func (r *fulfillmentRepository) GetWorkOrderItemForUpdate(tx *goqu.TxDatabase, workOrderID, lineItemID int) (*models.WorkOrderItem, error) {
	var item models.WorkOrderItem

	query := tx.Select("id", "work_order_id", "line_item_id", "allocated_qty", "picked_qty", "closed").
		From("work_order_items").
		Where(goqu.Ex{
			"work_order_id": workOrderID,
			"line_item_id":  lineItemID,
		}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&item)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work order item: %w", err)
	}
	if !found {
		return nil, &apperrors.LineItemNotInWorkOrderError{WorkOrderID: workOrderID, LineItemID: lineItemID}
	}

	return &item, nil
}

// AddPick increments both the allocation's and the line item's picked
// quantity. Both updates are relative, so concurrent picks by two team
// members on the same line item cannot lose an update.
func (r *fulfillmentRepository) AddPick(tx *goqu.TxDatabase, workOrderItemID, lineItemID int, qty float64) error {
	if _, err := tx.Update("work_order_items").
		Set(goqu.Record{"picked_qty": goqu.L("picked_qty + ?", qty)}).
		Where(goqu.Ex{"id": workOrderItemID}).
		Executor().
		Exec(); err != nil {
		return fmt.Errorf("failed to update work order item pick: %w", err)
	}

	if _, err := tx.Update("line_items").
		Set(goqu.Record{"picked_qty": goqu.L("picked_qty + ?", qty)}).
		Where(goqu.Ex{"id": lineItemID}).
		Executor().
		Exec(); err != nil {
		return fmt.Errorf("failed to update line item pick: %w", err)
	}

	return nil
}

func (r *fulfillmentRepository) CloseWorkOrderItem(tx *goqu.TxDatabase, workOrderItemID int) error {
	if _, err := tx.Update("work_order_items").
		Set(goqu.Record{"closed": true}).
		Where(goqu.Ex{"id": workOrderItemID}).
		Executor().
		Exec(); err != nil {
		return fmt.Errorf("failed to close work order item: %w", err)
	}

	return nil
}

func (r *fulfillmentRepository) CountUnclosedItems(tx *goqu.TxDatabase, workOrderID int) (int, error) {
	var count int

	_, err := tx.Select(goqu.COUNT("id")).
		From("work_order_items").
		Where(goqu.Ex{
			"work_order_id": workOrderID,
			"closed":        false,
		}).
		Executor().
		ScanVal(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unclosed items: %w", err)
	}

	return count, nil
}

func (r *fulfillmentRepository) UpdateWorkOrderStatus(tx *goqu.TxDatabase, workOrderID int, status string) error {
	if _, err := tx.Update("work_orders").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": workOrderID}).
		Executor().
		Exec(); err != nil {
		return fmt.Errorf("failed to update work order %d status: %w", workOrderID, err)
	}

	return nil
}

func (r *fulfillmentRepository) InsertDiscrepancy(tx *goqu.TxDatabase, discrepancy models.Discrepancy) (int, error) {
	query := tx.Insert("discrepancies").
		Rows(goqu.Record{
			"work_order_id":  discrepancy.WorkOrderID,
			"line_item_id":   discrepancy.LineItemID,
			"worker_id":      discrepancy.WorkerID,
			"required_qty":   discrepancy.RequiredQty,
			"picked_qty":     discrepancy.PickedQty,
			"missing_qty":    discrepancy.MissingQty,
			"classification": discrepancy.Classification,
			"reason":         discrepancy.Reason,
			"completed_at":   goqu.L("NOW()"),
		}).
		Returning("id")

	var discrepancyID int
	if _, err := query.Executor().ScanVal(&discrepancyID); err != nil {
		return 0, fmt.Errorf("failed to insert discrepancy: %w", err)
	}

	return discrepancyID, nil
}

func (r *fulfillmentRepository) GetRequisitionStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error) {
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

func (r *fulfillmentRepository) UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error {
	if _, err := tx.Update("requisitions").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": requisitionID}).
		Executor().
		Exec(); err != nil {
		return fmt.Errorf("failed to update requisition %d status: %w", requisitionID, err)
	}

	return nil
}

func (r *fulfillmentRepository) GetClosureRows(tx *goqu.TxDatabase, requisitionID int) ([]ClosureRow, error) {
	var rows []ClosureRow

	query := tx.Select(
		goqu.I("li.id").As("line_item_id"),
		goqu.I("li.requested_qty").As("requested_qty"),
		goqu.I("li.picked_qty").As("picked_qty"),
		goqu.L("COUNT(woi.id) FILTER (WHERE wo.status IS NOT NULL AND wo.status != ?)", models.WorkOrderCanceled).As("allocation_count"),
		goqu.L("COUNT(woi.id) FILTER (WHERE wo.status IS NOT NULL AND wo.status != ? AND NOT woi.closed)", models.WorkOrderCanceled).As("unclosed_count"),
	).
		From(goqu.T("line_items").As("li")).
		LeftJoin(
			goqu.T("work_order_items").As("woi"),
			goqu.On(goqu.Ex{"woi.line_item_id": goqu.I("li.id")}),
		).
		LeftJoin(
			goqu.T("work_orders").As("wo"),
			goqu.On(goqu.Ex{"wo.id": goqu.I("woi.work_order_id")}),
		).
		Where(goqu.Ex{"li.requisition_id": requisitionID}).
		GroupBy(goqu.I("li.id"), goqu.I("li.requested_qty"), goqu.I("li.picked_qty"))

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("failed to evaluate requisition closure: %w", err)
	}

	return rows, nil
}

func (r *fulfillmentRepository) GetWorkOrder(workOrderID int) (*models.WorkOrder, error) {
	var order models.WorkOrder

	query := r.Repo.GoquDBWrapper.
		Select("id", "document_number", "requisition_id", "worker_id", "priority", "due_at", "status", "created_at").
		From("work_orders").
		Where(goqu.Ex{"id": workOrderID})

	found, err := query.Executor().ScanStruct(&order)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work order: %w", err)
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "work order", ID: workOrderID}
	}

	var items []models.WorkOrderItem
	itemsQuery := r.Repo.GoquDBWrapper.
		Select("id", "work_order_id", "line_item_id", "allocated_qty", "picked_qty", "closed").
		From("work_order_items").
		Where(goqu.Ex{"work_order_id": workOrderID}).
		Order(goqu.I("id").Asc())

	if err := itemsQuery.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to fetch work order items: %w", err)
	}
	order.Items = items

	return &order, nil
}
