package requisitions

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/scheduler"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type stubTxRunner struct{}

func (stubTxRunner) RunTx(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type MockRequisitionRepository struct {
	mock.Mock
}

func (m *MockRequisitionRepository) GetRequisition(id int) (*models.Requisition, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Requisition), args.Error(1)
}

func (m *MockRequisitionRepository) GetRequisitions(status string) ([]models.Requisition, error) {
	args := m.Called(status)
	return args.Get(0).([]models.Requisition), args.Error(1)
}

func (m *MockRequisitionRepository) GetCommittedQuantities(requisitionID int) (map[int]float64, error) {
	args := m.Called(requisitionID)
	return args.Get(0).(map[int]float64), args.Error(1)
}

func (m *MockRequisitionRepository) GetStatusForUpdate(tx *goqu.TxDatabase, id int) (string, error) {
	args := m.Called(tx, id)
	return args.String(0), args.Error(1)
}

func (m *MockRequisitionRepository) UpdateStatus(tx *goqu.TxDatabase, id int, status string) error {
	args := m.Called(tx, id, status)
	return args.Error(0)
}

func newTestService(repo RequisitionRepository) (*RequisitionService, *scheduler.LockManager) {
	locks := scheduler.NewLockManager(3 * time.Minute)
	return NewService(stubTxRunner{}, repo, locks), locks
}

func TestGetSnapshotComputesRemainingAndCommitted(t *testing.T) {
	mockRepo := new(MockRequisitionRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetRequisition", 1).Return(&models.Requisition{
		ID:             1,
		DocumentNumber: "TR-0001",
		Status:         "in_progress",
		Items: []models.LineItem{
			{ID: 10, RequestedQty: 10, PickedQty: 7},
			{ID: 11, RequestedQty: 4, PickedQty: 0},
		},
	}, nil).Once()
	mockRepo.On("GetCommittedQuantities", 1).Return(map[int]float64{10: 10}, nil).Once()

	snapshot, err := service.GetSnapshot(1)

	assert.NoError(t, err)
	assert.Len(t, snapshot.Items, 2)
	assert.Equal(t, 3.0, snapshot.Items[0].Remaining)
	assert.Equal(t, 10.0, snapshot.Items[0].Committed)
	assert.Equal(t, 4.0, snapshot.Items[1].Remaining)
	assert.Equal(t, 0.0, snapshot.Items[1].Committed)
}

func TestListValidatesStatusFilter(t *testing.T) {
	mockRepo := new(MockRequisitionRepository)
	service, _ := newTestService(mockRepo)

	_, err := service.List("archived")

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
	mockRepo.AssertNotCalled(t, "GetRequisitions", mock.Anything)
}

func TestFailCancelsSchedulingSession(t *testing.T) {
	mockRepo := new(MockRequisitionRepository)
	service, locks := newTestService(mockRepo)

	assert.NoError(t, locks.AcquireLock(1, "alice"))

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("in_progress", nil).Once()
	mockRepo.On("UpdateStatus", mock.Anything, 1, "failed").Return(nil).Once()

	assert.NoError(t, service.Fail(1))

	var expired *apperrors.LockExpiredError
	assert.ErrorAs(t, locks.CheckHeld(1, "alice"), &expired)
	mockRepo.AssertExpectations(t)
}

func TestFailRejectsTerminalRequisition(t *testing.T) {
	mockRepo := new(MockRequisitionRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("done", nil).Once()

	err := service.Fail(1)

	var terminal *apperrors.TerminalStateError
	assert.ErrorAs(t, err, &terminal)
	mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
