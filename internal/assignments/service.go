package assignments

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/scheduler"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/metadata"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type ItemAllocation struct {
	LineItemID int     `json:"line_item_id" binding:"required"`
	Qty        float64 `json:"qty" binding:"required"`
}

type AssignmentEntry struct {
	WorkerID int              `json:"worker_id" binding:"required"`
	Priority models.Priority  `json:"priority"`
	DueAt    *time.Time       `json:"due_at"`
	Items    []ItemAllocation `json:"items" binding:"required"`
}

// AssignCommand is one atomic assignment batch: one or more work orders
// created together or not at all.
type AssignCommand struct {
	RequisitionID int
	Holder        string
	Override      bool
	Entries       []AssignmentEntry
}

type AssignmentService struct {
	db    repository.TxRunner
	repo  AssignmentRepository
	locks *scheduler.LockManager
}

func NewService(db repository.TxRunner, repo AssignmentRepository, locks *scheduler.LockManager) *AssignmentService {
	return &AssignmentService{
		db:    db,
		repo:  repo,
		locks: locks,
	}
}

// Assign creates the work orders for an accepted or overridden suggestion.
// Preconditions are checked under the requisition row lock; any failure
// leaves state untouched. On success the scheduling session is consumed.
func (s *AssignmentService) Assign(cmd AssignCommand) ([]int, error) {
	if err := validateEntries(cmd.Entries); err != nil {
		return nil, err
	}

	// The suggestion flow must still own a live lock; a manual override
	// bypasses the session check entirely.
	if !cmd.Override {
		if err := s.locks.CheckHeld(cmd.RequisitionID, cmd.Holder); err != nil {
			return nil, err
		}
	}

	var workOrderIDs []int

	err := s.db.RunTx(func(tx *goqu.TxDatabase) error {
		current, err := s.repo.GetStatusForUpdate(tx, cmd.RequisitionID)
		if err != nil {
			return err
		}

		status, err := metadata.NewStatus(current)
		if err != nil {
			return err
		}
		if status.IsTerminal() {
			return &apperrors.TerminalStateError{RequisitionID: cmd.RequisitionID, Status: current}
		}

		items, err := s.repo.GetLineItems(tx, cmd.RequisitionID)
		if err != nil {
			return err
		}
		committed, err := s.repo.GetCommittedQuantities(tx, cmd.RequisitionID)
		if err != nil {
			return err
		}

		if err := checkAllocations(cmd.RequisitionID, cmd.Entries, items, committed); err != nil {
			return err
		}

		for _, entry := range cmd.Entries {
			order := models.WorkOrder{
				DocumentNumber: newDocumentNumber(),
				RequisitionID:  cmd.RequisitionID,
				WorkerID:       entry.WorkerID,
				Priority:       entry.Priority,
				DueAt:          entry.DueAt,
			}

			workOrderID, err := s.repo.InsertWorkOrder(tx, order)
			if err != nil {
				return err
			}

			allocations := make([]models.WorkOrderItem, 0, len(entry.Items))
			for _, item := range entry.Items {
				allocations = append(allocations, models.WorkOrderItem{
					LineItemID:   item.LineItemID,
					AllocatedQty: item.Qty,
				})
			}
			if err := s.repo.InsertWorkOrderItems(tx, workOrderID, allocations); err != nil {
				return err
			}

			workOrderIDs = append(workOrderIDs, workOrderID)
		}

		if status == metadata.StatusNew {
			return s.repo.UpdateRequisitionStatus(tx, cmd.RequisitionID, metadata.StatusAssigned.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The scheduling session is complete; drop the lock and cached suggestion.
	s.locks.Release(cmd.RequisitionID)

	return workOrderIDs, nil
}

// AssignTeam splits every item allocation into two equal shares, one work
// order per team member, under the same priority and due time. Shares may be
// fractional; they always sum exactly to the original quantity.
func (s *AssignmentService) AssignTeam(requisitionID, teamID int, priority models.Priority, dueAt *time.Time, items []ItemAllocation, holder string, override bool) ([]int, error) {
	team, err := s.repo.GetTeam(teamID)
	if err != nil {
		return nil, err
	}
	if !team.Active {
		return nil, &apperrors.ValidationError{Field: "team_id", Message: fmt.Sprintf("team %d is not active", teamID)}
	}

	itemsA := make([]ItemAllocation, 0, len(items))
	itemsB := make([]ItemAllocation, 0, len(items))
	for _, item := range items {
		shareA, shareB := SplitTeamShares(item.Qty)
		itemsA = append(itemsA, ItemAllocation{LineItemID: item.LineItemID, Qty: shareA})
		itemsB = append(itemsB, ItemAllocation{LineItemID: item.LineItemID, Qty: shareB})
	}

	return s.Assign(AssignCommand{
		RequisitionID: requisitionID,
		Holder:        holder,
		Override:      override,
		Entries: []AssignmentEntry{
			{WorkerID: team.WorkerAID, Priority: priority, DueAt: dueAt, Items: itemsA},
			{WorkerID: team.WorkerBID, Priority: priority, DueAt: dueAt, Items: itemsB},
		},
	})
}

// SplitTeamShares halves a quantity so that the two shares sum exactly to the
// original. Both shares may be fractional (7 → 3.5 + 3.5).
func SplitTeamShares(qty float64) (float64, float64) {
	half := qty / 2
	return qty - half, half
}

func validateEntries(entries []AssignmentEntry) error {
	if len(entries) == 0 {
		return &apperrors.ValidationError{Field: "assignments", Message: "at least one assignment is required"}
	}

	for i := range entries {
		entry := &entries[i]
		if entry.Priority == "" {
			entry.Priority = models.PriorityNormal
		}
		if _, err := models.NewPriority(string(entry.Priority)); err != nil {
			return &apperrors.ValidationError{Field: "priority", Message: err.Error()}
		}
		if len(entry.Items) == 0 {
			return &apperrors.ValidationError{Field: "items", Message: "assignment must allocate at least one item"}
		}
		for _, item := range entry.Items {
			if item.Qty <= 0 {
				return &apperrors.ValidationError{
					Field:   "qty",
					Message: fmt.Sprintf("allocation for line item %d must be positive, got %.3f", item.LineItemID, item.Qty),
				}
			}
		}
	}

	return nil
}

// checkAllocations enforces the over-allocation invariant: per line item, the
// batch total on top of everything already committed must fit the requested
// quantity. Violations are reported per offending item.
func checkAllocations(requisitionID int, entries []AssignmentEntry, items []models.LineItem, committed map[int]float64) error {
	byID := make(map[int]*models.LineItem, len(items))
	eligible := false
	for i := range items {
		item := &items[i]
		byID[item.ID] = item
		if item.RequestedQty-committed[item.ID] > 0 {
			eligible = true
		}
	}

	if !eligible {
		return &apperrors.NoItemsEligibleError{RequisitionID: requisitionID}
	}

	requested := make(map[int]float64)
	for _, entry := range entries {
		for _, alloc := range entry.Items {
			if _, ok := byID[alloc.LineItemID]; !ok {
				return &apperrors.ValidationError{
					Field:   "line_item_id",
					Message: fmt.Sprintf("line item %d does not belong to requisition %d", alloc.LineItemID, requisitionID),
				}
			}
			requested[alloc.LineItemID] += alloc.Qty
		}
	}

	for lineItemID, qty := range requested {
		item := byID[lineItemID]
		allocatable := item.RequestedQty - committed[lineItemID]
		if qty > allocatable {
			return &apperrors.OverAllocationError{
				LineItemID:   lineItemID,
				RequestedQty: qty,
				Remaining:    item.Remaining(),
				Allocatable:  allocatable,
			}
		}
	}

	return nil
}

func newDocumentNumber() string {
	return "ZD-" + uuid.NewString()[:8]
}
