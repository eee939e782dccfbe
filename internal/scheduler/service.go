package scheduler

import (
	"github.com/Doppler617492/MagacinTracker-sub000/internal/config"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/metadata"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type RequisitionSource interface {
	GetRequisition(id int) (*models.Requisition, error)
}

type MetricsSource interface {
	GetSnapshot(warehouse string) ([]models.WorkerMetrics, error)
}

// Service drives the suggestion flow: compute via the scorer, cache the
// result and hold the scheduling lock through the LockManager.
type Service struct {
	requisitions RequisitionSource
	metrics      MetricsSource
	weights      config.ScoringWeights
	locks        *LockManager
}

func NewService(reqs RequisitionSource, metrics MetricsSource, weights config.ScoringWeights, locks *LockManager) *Service {
	return &Service{
		requisitions: reqs,
		metrics:      metrics,
		weights:      weights,
		locks:        locks,
	}
}

func (s *Service) Locks() *LockManager {
	return s.locks
}

// Suggest returns the cached suggestion while the scheduling session is live,
// or computes a fresh one and locks the requisition for the holder.
func (s *Service) Suggest(requisitionID int, holder string) (*models.Suggestion, error) {
	return s.locks.GetOrCompute(requisitionID, holder, func() (*models.Suggestion, error) {
		return s.compute(requisitionID)
	})
}

// Renew discards the current session and computes a new suggestion in one
// step ("new suggestion" on the dashboard).
func (s *Service) Renew(requisitionID int, holder string) (*models.Suggestion, error) {
	s.locks.Cancel(requisitionID)
	return s.Suggest(requisitionID, holder)
}

func (s *Service) Cancel(requisitionID int) {
	s.locks.Cancel(requisitionID)
}

func (s *Service) compute(requisitionID int) (*models.Suggestion, error) {
	requisition, err := s.requisitions.GetRequisition(requisitionID)
	if err != nil {
		return nil, err
	}

	status, err := metadata.NewStatus(requisition.Status)
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &apperrors.TerminalStateError{RequisitionID: requisitionID, Status: requisition.Status}
	}

	metrics, err := s.metrics.GetSnapshot(requisition.SourceWarehouse)
	if err != nil {
		return nil, err
	}

	return SuggestWorker(requisition, metrics, s.weights)
}
