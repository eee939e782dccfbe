package workers

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/repository"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type WorkerRepository interface {
	GetWorkers() ([]models.Worker, error)
	GetWorker(id int) (*models.Worker, error)
	PersistWorker(req CreateWorkerRequest) (int, error)
	UpdateWorker(id int, changes *WorkerChanges) error
	GetTeams() ([]models.Team, error)
	PersistTeam(tx *goqu.TxDatabase, req CreateTeamRequest) (int, error)
	ActiveTeamMembers(tx *goqu.TxDatabase, workerIDs []int) ([]int, error)
	DeactivateTeam(id int) error
}

type workerRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) WorkerRepository {
	return &workerRepository{Repo: r}
}

func (r *workerRepository) GetWorkers() ([]models.Worker, error) {
	var workers []models.Worker

	query := r.Repo.GoquDBWrapper.
		Select("id", "name", "warehouse", "active").
		From("workers").
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&workers); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return workers, nil
}

func (r *workerRepository) GetWorker(id int) (*models.Worker, error) {
	var worker models.Worker

	query := r.Repo.GoquDBWrapper.
		Select("id", "name", "warehouse", "active").
		From("workers").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&worker)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	if !found {
		return nil, &apperrors.NotFoundError{Resource: "worker", ID: id}
	}

	return &worker, nil
}

func (r *workerRepository) PersistWorker(req CreateWorkerRequest) (int, error) {
	query := r.Repo.GoquDBWrapper.Insert("workers").
		Rows(goqu.Record{
			"name":      req.Name,
			"warehouse": req.Warehouse,
			"active":    true,
		}).
		Returning("id")

	var workerID int
	if _, err := query.Executor().ScanVal(&workerID); err != nil {
		return 0, fmt.Errorf("failed to insert worker: %w", err)
	}

	return workerID, nil
}

func (r *workerRepository) UpdateWorker(id int, changes *WorkerChanges) error {
	record := goqu.Record{}
	if changes.Name != nil {
		record["name"] = *changes.Name
	}
	if changes.Warehouse != nil {
		record["warehouse"] = *changes.Warehouse
	}
	if changes.Active != nil {
		record["active"] = *changes.Active
	}
	if len(record) == 0 {
		return nil
	}

	query := r.Repo.GoquDBWrapper.Update("workers").
		Set(record).
		Where(goqu.Ex{"id": id})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update worker %d: %w", id, err)
	}

	return nil
}

func (r *workerRepository) GetTeams() ([]models.Team, error) {
	var teams []models.Team

	query := r.Repo.GoquDBWrapper.
		Select("id", "worker_a_id", "worker_b_id", "shift", "active").
		From("teams").
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&teams); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return teams, nil
}

func (r *workerRepository) PersistTeam(tx *goqu.TxDatabase, req CreateTeamRequest) (int, error) {
	query := tx.Insert("teams").
		Rows(goqu.Record{
			"worker_a_id": req.WorkerAID,
			"worker_b_id": req.WorkerBID,
			"shift":       req.Shift,
			"active":      true,
		}).
		Returning("id")

	var teamID int
	if _, err := query.Executor().ScanVal(&teamID); err != nil {
		return 0, fmt.Errorf("failed to insert team: %w", err)
	}

	return teamID, nil
}

// ActiveTeamMembers returns which of the given workers already belong to an
// active team. Queried under the transaction that inserts the new team so
// the at-most-one-team invariant cannot be raced.
func (r *workerRepository) ActiveTeamMembers(tx *goqu.TxDatabase, workerIDs []int) ([]int, error) {
	var rows []struct {
		WorkerAID int `db:"worker_a_id"`
		WorkerBID int `db:"worker_b_id"`
	}

	query := tx.Select("worker_a_id", "worker_b_id").
		From("teams").
		Where(
			goqu.Ex{"active": true},
			goqu.Or(
				goqu.C("worker_a_id").In(workerIDs),
				goqu.C("worker_b_id").In(workerIDs),
			),
		)

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("failed to check team membership: %w", err)
	}

	requested := make(map[int]bool, len(workerIDs))
	for _, id := range workerIDs {
		requested[id] = true
	}

	var members []int
	for _, row := range rows {
		if requested[row.WorkerAID] {
			members = append(members, row.WorkerAID)
		}
		if requested[row.WorkerBID] {
			members = append(members, row.WorkerBID)
		}
	}

	return members, nil
}

func (r *workerRepository) DeactivateTeam(id int) error {
	query := r.Repo.GoquDBWrapper.Update("teams").
		Set(goqu.Record{"active": false}).
		Where(goqu.Ex{"id": id})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to deactivate team %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &apperrors.NotFoundError{Resource: "team", ID: id}
	}

	return nil
}
