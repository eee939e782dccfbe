package workers

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type CreateWorkerRequest struct {
	Name      string `json:"name" binding:"required"`
	Warehouse string `json:"warehouse" binding:"required"`
}

type WorkerChanges struct {
	Name      *string `json:"name"`
	Warehouse *string `json:"warehouse"`
	Active    *bool   `json:"active"`
}

type CreateTeamRequest struct {
	WorkerAID int    `json:"worker_a_id" binding:"required"`
	WorkerBID int    `json:"worker_b_id" binding:"required"`
	Shift     string `json:"shift" binding:"required"`
}

type WorkerService struct {
	db   repository.TxRunner
	repo WorkerRepository
}

func NewWorkerService(db repository.TxRunner, repo WorkerRepository) *WorkerService {
	return &WorkerService{db: db, repo: repo}
}

func (s *WorkerService) ListWorkers() ([]models.Worker, error) {
	return s.repo.GetWorkers()
}

func (s *WorkerService) GetWorker(id int) (*models.Worker, error) {
	return s.repo.GetWorker(id)
}

func (s *WorkerService) CreateWorker(req CreateWorkerRequest) (*models.Worker, error) {
	id, err := s.repo.PersistWorker(req)
	if err != nil {
		return nil, err
	}

	return s.repo.GetWorker(id)
}

func (s *WorkerService) UpdateWorker(id int, changes *WorkerChanges) (*models.Worker, error) {
	if _, err := s.repo.GetWorker(id); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWorker(id, changes); err != nil {
		return nil, err
	}

	return s.repo.GetWorker(id)
}

func (s *WorkerService) ListTeams() ([]models.Team, error) {
	return s.repo.GetTeams()
}

// CreateTeam pairs two active workers for a shift. A worker may belong to at
// most one active team, checked inside the insert transaction.
func (s *WorkerService) CreateTeam(req CreateTeamRequest) (int, error) {
	if req.Shift != "A" && req.Shift != "B" {
		return 0, &apperrors.ValidationError{Field: "shift", Message: "shift must be A or B"}
	}

	if req.WorkerAID == req.WorkerBID {
		return 0, &apperrors.ValidationError{Field: "worker_b_id", Message: "a team requires two distinct workers"}
	}

	for _, workerID := range []int{req.WorkerAID, req.WorkerBID} {
		worker, err := s.repo.GetWorker(workerID)
		if err != nil {
			return 0, err
		}
		if !worker.Active {
			return 0, &apperrors.ValidationError{
				Field:   "worker_id",
				Message: fmt.Sprintf("worker %d is inactive", workerID),
			}
		}
	}

	var teamID int
	err := s.db.RunTx(func(tx *goqu.TxDatabase) error {
		members, err := s.repo.ActiveTeamMembers(tx, []int{req.WorkerAID, req.WorkerBID})
		if err != nil {
			return err
		}
		if len(members) > 0 {
			return &apperrors.ValidationError{
				Field:   "worker_id",
				Message: fmt.Sprintf("worker %d already belongs to an active team", members[0]),
			}
		}

		teamID, err = s.repo.PersistTeam(tx, req)
		return err
	})
	if err != nil {
		return 0, err
	}

	return teamID, nil
}

func (s *WorkerService) DisbandTeam(id int) error {
	return s.repo.DeactivateTeam(id)
}
