package fulfillment

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/metadata"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type PickCommand struct {
	WorkOrderID    int
	LineItemID     int
	Qty            float64
	Closed         bool
	Classification string
	Reason         string
}

type PickResult struct {
	WorkOrderID       int                 `json:"work_order_id"`
	LineItemID        int                 `json:"line_item_id"`
	PickedQty         float64             `json:"picked_qty"`
	AllocatedQty      float64             `json:"allocated_qty"`
	Closed            bool                `json:"closed"`
	Discrepancy       *models.Discrepancy `json:"discrepancy,omitempty"`
	RequisitionStatus string              `json:"requisition_status"`
}

type FulfillmentService struct {
	db   repository.TxRunner
	repo FulfillmentRepository
	log  *zap.Logger
}

func NewService(db repository.TxRunner, repo FulfillmentRepository, log *zap.Logger) *FulfillmentService {
	return &FulfillmentService{
		db:   db,
		repo: repo,
		log:  log,
	}
}

// RecordPick applies one pick report from a worker device: the picked delta
// is added (monotonic, never subtracted), the item is optionally closed, a
// discrepancy is filed when the close is short, and the requisition state
// machine advances. The whole report is one transaction.
func (s *FulfillmentService) RecordPick(cmd PickCommand) (*PickResult, error) {
	if cmd.Qty < 0 {
		return nil, &apperrors.NegativePickError{Qty: cmd.Qty}
	}
	if cmd.Classification != "" {
		if _, err := models.NewClassification(cmd.Classification); err != nil {
			return nil, &apperrors.ValidationError{Field: "classification", Message: err.Error()}
		}
	}

	var result PickResult
	var requisitionID int

	err := s.db.RunTx(func(tx *goqu.TxDatabase) error {
		order, err := s.repo.GetWorkOrderForUpdate(tx, cmd.WorkOrderID)
		if err != nil {
			return err
		}
		if order.Status != models.WorkOrderOpen {
			return &apperrors.ValidationError{
				Field:   "work_order_id",
				Message: fmt.Sprintf("work order %d is %s, not open", cmd.WorkOrderID, order.Status),
			}
		}

		item, err := s.repo.GetWorkOrderItemForUpdate(tx, cmd.WorkOrderID, cmd.LineItemID)
		if err != nil {
			return err
		}
		if item.Closed {
			return &apperrors.ValidationError{
				Field:   "line_item_id",
				Message: fmt.Sprintf("line item %d is already closed on work order %d", cmd.LineItemID, cmd.WorkOrderID),
			}
		}

		if cmd.Qty > 0 {
			if err := s.repo.AddPick(tx, item.ID, cmd.LineItemID, cmd.Qty); err != nil {
				return err
			}
		}
		pickedQty := item.PickedQty + cmd.Qty

		result = PickResult{
			WorkOrderID:  cmd.WorkOrderID,
			LineItemID:   cmd.LineItemID,
			PickedQty:    pickedQty,
			AllocatedQty: item.AllocatedQty,
			Closed:       cmd.Closed,
		}

		if cmd.Closed {
			discrepancy, err := s.closeItem(tx, order, item, pickedQty, cmd)
			if err != nil {
				return err
			}
			result.Discrepancy = discrepancy
		}

		requisitionID = order.RequisitionID
		status, err := s.advanceRequisition(tx, order.RequisitionID)
		if err != nil {
			return err
		}
		result.RequisitionStatus = status

		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.RequisitionStatus == metadata.StatusDone.String() {
		// Notification delivery is an external collaborator; closure only
		// needs to be announced, not awaited.
		s.log.Info("requisition fulfilled",
			zap.Int("requisition_id", requisitionID),
			zap.Int("work_order_id", cmd.WorkOrderID),
		)
	}

	return &result, nil
}

func (s *FulfillmentService) GetWorkOrder(workOrderID int) (*models.WorkOrder, error) {
	return s.repo.GetWorkOrder(workOrderID)
}

// closeItem marks the allocation done. A short close (picked < allocated)
// must carry a classification and produces a discrepancy record; the missing
// quantity is never picked later under this allocation.
func (s *FulfillmentService) closeItem(tx *goqu.TxDatabase, order *models.WorkOrder, item *models.WorkOrderItem, pickedQty float64, cmd PickCommand) (*models.Discrepancy, error) {
	var discrepancy *models.Discrepancy

	missing := item.AllocatedQty - pickedQty
	if missing > 0 {
		if cmd.Classification == "" {
			return nil, &apperrors.ClassificationRequiredError{LineItemID: cmd.LineItemID, MissingQty: missing}
		}

		record := models.Discrepancy{
			WorkOrderID:    cmd.WorkOrderID,
			LineItemID:     cmd.LineItemID,
			WorkerID:       order.WorkerID,
			RequiredQty:    item.AllocatedQty,
			PickedQty:      pickedQty,
			MissingQty:     missing,
			Classification: models.Classification(cmd.Classification),
			Reason:         cmd.Reason,
		}

		discrepancyID, err := s.repo.InsertDiscrepancy(tx, record)
		if err != nil {
			return nil, err
		}
		record.ID = discrepancyID
		discrepancy = &record
	}

	if err := s.repo.CloseWorkOrderItem(tx, item.ID); err != nil {
		return nil, err
	}

	unclosed, err := s.repo.CountUnclosedItems(tx, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if unclosed == 0 {
		if err := s.repo.UpdateWorkOrderStatus(tx, cmd.WorkOrderID, models.WorkOrderCompleted); err != nil {
			return nil, err
		}
	}

	return discrepancy, nil
}

// advanceRequisition moves assigned → in_progress on the first reported pick
// and evaluates closure: when every line item either has nothing remaining or
// has all of its allocations explicitly closed, the requisition is done.
func (s *FulfillmentService) advanceRequisition(tx *goqu.TxDatabase, requisitionID int) (string, error) {
	current, err := s.repo.GetRequisitionStatusForUpdate(tx, requisitionID)
	if err != nil {
		return "", err
	}

	status, err := metadata.NewStatus(current)
	if err != nil {
		return "", err
	}

	if status == metadata.StatusAssigned {
		status = metadata.StatusInProgress
		if err := s.repo.UpdateRequisitionStatus(tx, requisitionID, status.String()); err != nil {
			return "", err
		}
	}

	if status != metadata.StatusInProgress {
		return status.String(), nil
	}

	rows, err := s.repo.GetClosureRows(tx, requisitionID)
	if err != nil {
		return "", err
	}

	for i := range rows {
		if !rows[i].Closable() {
			return status.String(), nil
		}
	}

	status = metadata.StatusDone
	if err := s.repo.UpdateRequisitionStatus(tx, requisitionID, status.String()); err != nil {
		return "", err
	}

	return status.String(), nil
}
