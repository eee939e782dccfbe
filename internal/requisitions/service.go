package requisitions

import (
	"github.com/doug-martin/goqu/v9"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/internal/scheduler"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/metadata"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

// Snapshot is the dashboard view of a requisition: current status plus
// per-item picked, remaining and committed quantities.
type Snapshot struct {
	ID               int            `json:"id"`
	DocumentNumber   string         `json:"document_number"`
	SourceWarehouse  string         `json:"source_warehouse"`
	DestinationStore string         `json:"destination_store"`
	Status           string         `json:"status"`
	Items            []SnapshotItem `json:"items"`
}

type SnapshotItem struct {
	ID           int     `json:"id"`
	ArticleCode  string  `json:"article_code"`
	ArticleName  string  `json:"article_name"`
	RequestedQty float64 `json:"requested_qty"`
	PickedQty    float64 `json:"picked_qty"`
	Remaining    float64 `json:"remaining"`
	Committed    float64 `json:"committed"`
	Status       string  `json:"status"`
}

type RequisitionService struct {
	db    repository.TxRunner
	repo  RequisitionRepository
	locks *scheduler.LockManager
}

func NewService(db repository.TxRunner, repo RequisitionRepository, locks *scheduler.LockManager) *RequisitionService {
	return &RequisitionService{
		db:    db,
		repo:  repo,
		locks: locks,
	}
}

func (s *RequisitionService) GetSnapshot(id int) (*Snapshot, error) {
	requisition, err := s.repo.GetRequisition(id)
	if err != nil {
		return nil, err
	}

	committed, err := s.repo.GetCommittedQuantities(id)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		ID:               requisition.ID,
		DocumentNumber:   requisition.DocumentNumber,
		SourceWarehouse:  requisition.SourceWarehouse,
		DestinationStore: requisition.DestinationStore,
		Status:           requisition.Status,
		Items:            make([]SnapshotItem, 0, len(requisition.Items)),
	}

	for i := range requisition.Items {
		item := &requisition.Items[i]
		snapshot.Items = append(snapshot.Items, SnapshotItem{
			ID:           item.ID,
			ArticleCode:  item.ArticleCode,
			ArticleName:  item.ArticleName,
			RequestedQty: item.RequestedQty,
			PickedQty:    item.PickedQty,
			Remaining:    item.Remaining(),
			Committed:    committed[item.ID],
			Status:       item.Status,
		})
	}

	return &snapshot, nil
}

func (s *RequisitionService) List(status string) ([]models.Requisition, error) {
	if status != "" {
		if _, err := metadata.NewStatus(status); err != nil {
			return nil, &apperrors.ValidationError{Field: "status", Message: err.Error()}
		}
	}
	return s.repo.GetRequisitions(status)
}

// Fail marks the requisition failed by explicit operator action. Allowed from
// any non-terminal state; an already-terminal requisition is rejected, not
// silently ignored.
func (s *RequisitionService) Fail(id int) error {
	err := s.db.RunTx(func(tx *goqu.TxDatabase) error {
		current, err := s.repo.GetStatusForUpdate(tx, id)
		if err != nil {
			return err
		}

		status, err := metadata.NewStatus(current)
		if err != nil {
			return err
		}
		if !status.CanTransition(metadata.StatusFailed) {
			return &apperrors.TerminalStateError{RequisitionID: id, Status: current}
		}

		return s.repo.UpdateStatus(tx, id, metadata.StatusFailed.String())
	})
	if err != nil {
		return err
	}

	// A failed requisition has no scheduling session to keep alive.
	s.locks.Cancel(id)
	return nil
}
