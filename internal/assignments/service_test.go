package assignments

import (
	"errors"
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

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) GetStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error) {
	args := m.Called(tx, requisitionID)
	return args.String(0), args.Error(1)
}

func (m *MockAssignmentRepository) GetLineItems(tx *goqu.TxDatabase, requisitionID int) ([]models.LineItem, error) {
	args := m.Called(tx, requisitionID)
	return args.Get(0).([]models.LineItem), args.Error(1)
}

func (m *MockAssignmentRepository) GetCommittedQuantities(tx *goqu.TxDatabase, requisitionID int) (map[int]float64, error) {
	args := m.Called(tx, requisitionID)
	return args.Get(0).(map[int]float64), args.Error(1)
}

func (m *MockAssignmentRepository) InsertWorkOrder(tx *goqu.TxDatabase, order models.WorkOrder) (int, error) {
	args := m.Called(tx, order)
	return args.Int(0), args.Error(1)
}

func (m *MockAssignmentRepository) InsertWorkOrderItems(tx *goqu.TxDatabase, workOrderID int, items []models.WorkOrderItem) error {
	args := m.Called(tx, workOrderID, items)
	return args.Error(0)
}

func (m *MockAssignmentRepository) UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error {
	args := m.Called(tx, requisitionID, status)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetTeam(teamID int) (*models.Team, error) {
	args := m.Called(teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func newTestService(repo AssignmentRepository) (*AssignmentService, *scheduler.LockManager) {
	locks := scheduler.NewLockManager(3 * time.Minute)
	return NewService(stubTxRunner{}, repo, locks), locks
}

func twoLineItems() []models.LineItem {
	return []models.LineItem{
		{ID: 10, RequisitionID: 1, RequestedQty: 10},
		{ID: 11, RequisitionID: 1, RequestedQty: 4},
	}
}

func TestAssignCreatesWorkOrdersAndConsumesLock(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, locks := newTestService(mockRepo)

	assert.NoError(t, locks.AcquireLock(1, "alice"))

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("new", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{}, nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.MatchedBy(func(order models.WorkOrder) bool {
		return order.RequisitionID == 1 && order.WorkerID == 7
	})).Return(101, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 101, []models.WorkOrderItem{
		{LineItemID: 10, AllocatedQty: 10},
	}).Return(nil).Once()
	mockRepo.On("UpdateRequisitionStatus", mock.Anything, 1, "assigned").Return(nil).Once()

	ids, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 10}}},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{101}, ids)
	mockRepo.AssertExpectations(t)

	// The scheduling session is consumed on success.
	var expired *apperrors.LockExpiredError
	assert.ErrorAs(t, locks.CheckHeld(1, "alice"), &expired)
}

func TestAssignRejectsExpiredSession(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 1}}},
		},
	})

	var expired *apperrors.LockExpiredError
	assert.ErrorAs(t, err, &expired)
	mockRepo.AssertNotCalled(t, "GetStatusForUpdate", mock.Anything, mock.Anything)
}

func TestAssignOverrideBypassesLock(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, locks := newTestService(mockRepo)

	// Someone else holds the session; the manual override wins anyway.
	assert.NoError(t, locks.AcquireLock(1, "bob"))

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("new", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{}, nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.Anything).Return(102, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 102, mock.Anything).Return(nil).Once()
	mockRepo.On("UpdateRequisitionStatus", mock.Anything, 1, "assigned").Return(nil).Once()

	ids, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 8, Items: []ItemAllocation{{LineItemID: 10, Qty: 5}}},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{102}, ids)
}

func TestAssignOverAllocationReportedPerItem(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("assigned", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	// Line item 10 already has its full 10 committed to open work orders;
	// line item 11 still has 4 allocatable, keeping the requisition eligible.
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{10: 10}, nil).Once()

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 5}}},
		},
	})

	var overAlloc *apperrors.OverAllocationError
	assert.ErrorAs(t, err, &overAlloc)
	assert.Equal(t, 10, overAlloc.LineItemID)
	assert.Equal(t, 0.0, overAlloc.Allocatable)
	mockRepo.AssertNotCalled(t, "InsertWorkOrder", mock.Anything, mock.Anything)
}

func TestAssignCountsClosedShortAllocationsAsPickedOnly(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("in_progress", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return([]models.LineItem{
		{ID: 10, RequisitionID: 1, RequestedQty: 10, PickedQty: 7},
	}, nil).Once()
	// The earlier allocation closed short at 7 of 10: only the picked 7 stays
	// committed, so 3 is allocatable again.
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{10: 7}, nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.Anything).Return(103, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 103, []models.WorkOrderItem{
		{LineItemID: 10, AllocatedQty: 3},
	}).Return(nil).Once()

	ids, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 3}}},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{103}, ids)
	mockRepo.AssertExpectations(t)
}

func TestAssignNoItemsEligible(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("in_progress", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{10: 10, 11: 4}, nil).Once()

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 1}}},
		},
	})

	var notEligible *apperrors.NoItemsEligibleError
	assert.ErrorAs(t, err, &notEligible)
}

func TestAssignTerminalRequisition(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("failed", nil).Once()

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 1}}},
		},
	})

	var terminal *apperrors.TerminalStateError
	assert.ErrorAs(t, err, &terminal)
}

func TestAssignRequisitionNotFound(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	notFound := &apperrors.NotFoundError{Resource: "requisition", ID: 1}
	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("", notFound).Once()

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Override:      true,
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 1}}},
		},
	})

	assert.ErrorIs(t, err, notFound)
}

func TestAssignValidation(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	tests := []struct {
		name    string
		entries []AssignmentEntry
	}{
		{name: "no entries", entries: nil},
		{name: "entry without items", entries: []AssignmentEntry{{WorkerID: 7}}},
		{
			name: "non-positive quantity",
			entries: []AssignmentEntry{
				{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: -1}}},
			},
		},
		{
			name: "unknown priority",
			entries: []AssignmentEntry{
				{WorkerID: 7, Priority: "urgent", Items: []ItemAllocation{{LineItemID: 10, Qty: 1}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Assign(AssignCommand{RequisitionID: 1, Override: true, Entries: tt.entries})

			var validation *apperrors.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}

	mockRepo.AssertNotCalled(t, "GetStatusForUpdate", mock.Anything, mock.Anything)
}

func TestAssignAllOrNothing(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, locks := newTestService(mockRepo)

	assert.NoError(t, locks.AcquireLock(1, "alice"))

	insertErr := errors.New("unique constraint violation")
	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("new", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{}, nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.Anything).Return(101, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 101, mock.Anything).Return(nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.Anything).Return(0, insertErr).Once()

	_, err := service.Assign(AssignCommand{
		RequisitionID: 1,
		Holder:        "alice",
		Entries: []AssignmentEntry{
			{WorkerID: 7, Items: []ItemAllocation{{LineItemID: 10, Qty: 5}}},
			{WorkerID: 8, Items: []ItemAllocation{{LineItemID: 11, Qty: 2}}},
		},
	})

	assert.ErrorIs(t, err, insertErr)

	// The failed batch must not consume the scheduling session.
	assert.NoError(t, locks.CheckHeld(1, "alice"))
}

func TestSplitTeamShares(t *testing.T) {
	tests := []struct {
		qty    float64
		shareA float64
		shareB float64
	}{
		{qty: 7, shareA: 3.5, shareB: 3.5},
		{qty: 10, shareA: 5, shareB: 5},
		{qty: 0.5, shareA: 0.25, shareB: 0.25},
		{qty: 1, shareA: 0.5, shareB: 0.5},
	}

	for _, tt := range tests {
		shareA, shareB := SplitTeamShares(tt.qty)
		assert.Equal(t, tt.shareA, shareA)
		assert.Equal(t, tt.shareB, shareB)
		assert.Equal(t, tt.qty, shareA+shareB)
	}
}

func TestAssignTeamCreatesOneOrderPerMember(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetTeam", 5).Return(&models.Team{ID: 5, WorkerAID: 7, WorkerBID: 8, Shift: "A", Active: true}, nil).Once()
	mockRepo.On("GetStatusForUpdate", mock.Anything, 1).Return("new", nil).Once()
	mockRepo.On("GetLineItems", mock.Anything, 1).Return(twoLineItems(), nil).Once()
	mockRepo.On("GetCommittedQuantities", mock.Anything, 1).Return(map[int]float64{}, nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.MatchedBy(func(order models.WorkOrder) bool {
		return order.WorkerID == 7
	})).Return(201, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 201, []models.WorkOrderItem{
		{LineItemID: 10, AllocatedQty: 3.5},
	}).Return(nil).Once()
	mockRepo.On("InsertWorkOrder", mock.Anything, mock.MatchedBy(func(order models.WorkOrder) bool {
		return order.WorkerID == 8
	})).Return(202, nil).Once()
	mockRepo.On("InsertWorkOrderItems", mock.Anything, 202, []models.WorkOrderItem{
		{LineItemID: 10, AllocatedQty: 3.5},
	}).Return(nil).Once()
	mockRepo.On("UpdateRequisitionStatus", mock.Anything, 1, "assigned").Return(nil).Once()

	ids, err := service.AssignTeam(1, 5, models.PriorityNormal, nil, []ItemAllocation{{LineItemID: 10, Qty: 7}}, "alice", true)

	assert.NoError(t, err)
	assert.Equal(t, []int{201, 202}, ids)
	mockRepo.AssertExpectations(t)
}

func TestAssignTeamInactive(t *testing.T) {
	mockRepo := new(MockAssignmentRepository)
	service, _ := newTestService(mockRepo)

	mockRepo.On("GetTeam", 5).Return(&models.Team{ID: 5, WorkerAID: 7, WorkerBID: 8, Active: false}, nil).Once()

	_, err := service.AssignTeam(1, 5, models.PriorityNormal, nil, []ItemAllocation{{LineItemID: 10, Qty: 7}}, "alice", true)

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
}
