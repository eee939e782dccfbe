package fulfillment

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type stubTxRunner struct{}

func (stubTxRunner) RunTx(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type MockFulfillmentRepository struct {
	mock.Mock
}

func (m *MockFulfillmentRepository) GetWorkOrderForUpdate(tx *goqu.TxDatabase, workOrderID int) (*models.WorkOrder, error) {
	args := m.Called(tx, workOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrder), args.Error(1)
}

func (m *MockFulfillmentRepository) GetWorkOrderItemForUpdate(tx *goqu.TxDatabase, workOrderID, lineItemID int) (*models.WorkOrderItem, error) {
	args := m.Called(tx, workOrderID, lineItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrderItem), args.Error(1)
}

func (m *MockFulfillmentRepository) AddPick(tx *goqu.TxDatabase, workOrderItemID, lineItemID int, qty float64) error {
	args := m.Called(tx, workOrderItemID, lineItemID, qty)
	return args.Error(0)
}

func (m *MockFulfillmentRepository) CloseWorkOrderItem(tx *goqu.TxDatabase, workOrderItemID int) error {
	args := m.Called(tx, workOrderItemID)
	return args.Error(0)
}

func (m *MockFulfillmentRepository) CountUnclosedItems(tx *goqu.TxDatabase, workOrderID int) (int, error) {
	args := m.Called(tx, workOrderID)
	return args.Int(0), args.Error(1)
}

func (m *MockFulfillmentRepository) UpdateWorkOrderStatus(tx *goqu.TxDatabase, workOrderID int, status string) error {
	args := m.Called(tx, workOrderID, status)
	return args.Error(0)
}

func (m *MockFulfillmentRepository) InsertDiscrepancy(tx *goqu.TxDatabase, discrepancy models.Discrepancy) (int, error) {
	args := m.Called(tx, discrepancy)
	return args.Int(0), args.Error(1)
}

func (m *MockFulfillmentRepository) GetRequisitionStatusForUpdate(tx *goqu.TxDatabase, requisitionID int) (string, error) {
	args := m.Called(tx, requisitionID)
	return args.String(0), args.Error(1)
}

func (m *MockFulfillmentRepository) UpdateRequisitionStatus(tx *goqu.TxDatabase, requisitionID int, status string) error {
	args := m.Called(tx, requisitionID, status)
	return args.Error(0)
}

func (m *MockFulfillmentRepository) GetClosureRows(tx *goqu.TxDatabase, requisitionID int) ([]ClosureRow, error) {
	args := m.Called(tx, requisitionID)
	return args.Get(0).([]ClosureRow), args.Error(1)
}

func (m *MockFulfillmentRepository) GetWorkOrder(workOrderID int) (*models.WorkOrder, error) {
	args := m.Called(workOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrder), args.Error(1)
}

func newTestService(repo FulfillmentRepository) *FulfillmentService {
	return NewService(stubTxRunner{}, repo, zap.NewNop())
}

func openWorkOrder() *models.WorkOrder {
	return &models.WorkOrder{ID: 100, RequisitionID: 1, WorkerID: 7, Status: models.WorkOrderOpen}
}

func TestRecordPickAdvancesToInProgress(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 10).
		Return(&models.WorkOrderItem{ID: 1000, WorkOrderID: 100, LineItemID: 10, AllocatedQty: 10, PickedQty: 0}, nil).Once()
	mockRepo.On("AddPick", mock.Anything, 1000, 10, 4.0).Return(nil).Once()
	mockRepo.On("GetRequisitionStatusForUpdate", mock.Anything, 1).Return("assigned", nil).Once()
	mockRepo.On("UpdateRequisitionStatus", mock.Anything, 1, "in_progress").Return(nil).Once()
	mockRepo.On("GetClosureRows", mock.Anything, 1).Return([]ClosureRow{
		{LineItemID: 10, RequestedQty: 10, PickedQty: 4, AllocationCount: 1, UnclosedCount: 1},
	}, nil).Once()

	result, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 4})

	assert.NoError(t, err)
	assert.Equal(t, 4.0, result.PickedQty)
	assert.Equal(t, "in_progress", result.RequisitionStatus)
	assert.Nil(t, result.Discrepancy)
	mockRepo.AssertExpectations(t)
}

func TestRecordPickShortCloseFilesDiscrepancy(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	// 7 of 10 picked so far; the worker closes the item without picking more.
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 10).
		Return(&models.WorkOrderItem{ID: 1000, WorkOrderID: 100, LineItemID: 10, AllocatedQty: 10, PickedQty: 7}, nil).Once()
	mockRepo.On("InsertDiscrepancy", mock.Anything, mock.MatchedBy(func(d models.Discrepancy) bool {
		return d.MissingQty == 3 && d.Classification == models.ClassificationNotFound && d.WorkerID == 7
	})).Return(55, nil).Once()
	mockRepo.On("CloseWorkOrderItem", mock.Anything, 1000).Return(nil).Once()
	mockRepo.On("CountUnclosedItems", mock.Anything, 100).Return(0, nil).Once()
	mockRepo.On("UpdateWorkOrderStatus", mock.Anything, 100, models.WorkOrderCompleted).Return(nil).Once()
	mockRepo.On("GetRequisitionStatusForUpdate", mock.Anything, 1).Return("in_progress", nil).Once()
	mockRepo.On("GetClosureRows", mock.Anything, 1).Return([]ClosureRow{
		{LineItemID: 10, RequestedQty: 10, PickedQty: 7, AllocationCount: 1, UnclosedCount: 0},
	}, nil).Once()
	mockRepo.On("UpdateRequisitionStatus", mock.Anything, 1, "done").Return(nil).Once()

	result, err := service.RecordPick(PickCommand{
		WorkOrderID:    100,
		LineItemID:     10,
		Qty:            0,
		Closed:         true,
		Classification: "not_found",
		Reason:         "bin empty",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result.Discrepancy)
	assert.Equal(t, 55, result.Discrepancy.ID)
	assert.Equal(t, 3.0, result.Discrepancy.MissingQty)
	assert.Equal(t, "done", result.RequisitionStatus)
	mockRepo.AssertExpectations(t)
}

func TestRecordPickShortCloseRequiresClassification(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 10).
		Return(&models.WorkOrderItem{ID: 1000, WorkOrderID: 100, LineItemID: 10, AllocatedQty: 10, PickedQty: 7}, nil).Once()

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 0, Closed: true})

	var required *apperrors.ClassificationRequiredError
	assert.ErrorAs(t, err, &required)
	assert.Equal(t, 3.0, required.MissingQty)
	mockRepo.AssertNotCalled(t, "InsertDiscrepancy", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CloseWorkOrderItem", mock.Anything, mock.Anything)
}

func TestRecordPickFullCloseNeedsNoClassification(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 10).
		Return(&models.WorkOrderItem{ID: 1000, WorkOrderID: 100, LineItemID: 10, AllocatedQty: 10, PickedQty: 6}, nil).Once()
	mockRepo.On("AddPick", mock.Anything, 1000, 10, 4.0).Return(nil).Once()
	mockRepo.On("CloseWorkOrderItem", mock.Anything, 1000).Return(nil).Once()
	mockRepo.On("CountUnclosedItems", mock.Anything, 100).Return(1, nil).Once()
	mockRepo.On("GetRequisitionStatusForUpdate", mock.Anything, 1).Return("in_progress", nil).Once()
	mockRepo.On("GetClosureRows", mock.Anything, 1).Return([]ClosureRow{
		{LineItemID: 10, RequestedQty: 10, PickedQty: 10, AllocationCount: 1, UnclosedCount: 0},
		{LineItemID: 11, RequestedQty: 4, PickedQty: 0, AllocationCount: 1, UnclosedCount: 1},
	}, nil).Once()

	result, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 4, Closed: true})

	assert.NoError(t, err)
	assert.Nil(t, result.Discrepancy)
	assert.Equal(t, "in_progress", result.RequisitionStatus)
	mockRepo.AssertNotCalled(t, "UpdateWorkOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestRecordPickRejectsNegativeDelta(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: -2})

	var negative *apperrors.NegativePickError
	assert.ErrorAs(t, err, &negative)
	mockRepo.AssertNotCalled(t, "GetWorkOrderForUpdate", mock.Anything, mock.Anything)
}

func TestRecordPickRejectsUnknownClassification(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 1, Classification: "lost"})

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestRecordPickRejectsClosedItem(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 10).
		Return(&models.WorkOrderItem{ID: 1000, WorkOrderID: 100, LineItemID: 10, AllocatedQty: 10, PickedQty: 10, Closed: true}, nil).Once()

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 1})

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
	mockRepo.AssertNotCalled(t, "AddPick", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPickRejectsCompletedWorkOrder(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	order := openWorkOrder()
	order.Status = models.WorkOrderCompleted
	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(order, nil).Once()

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 10, Qty: 1})

	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestRecordPickUnknownLineItem(t *testing.T) {
	mockRepo := new(MockFulfillmentRepository)
	service := newTestService(mockRepo)

	notInOrder := &apperrors.LineItemNotInWorkOrderError{WorkOrderID: 100, LineItemID: 99}
	mockRepo.On("GetWorkOrderForUpdate", mock.Anything, 100).Return(openWorkOrder(), nil).Once()
	mockRepo.On("GetWorkOrderItemForUpdate", mock.Anything, 100, 99).Return(nil, notInOrder).Once()

	_, err := service.RecordPick(PickCommand{WorkOrderID: 100, LineItemID: 99, Qty: 1})

	assert.ErrorIs(t, err, notInOrder)
}

func TestClosureRowClosable(t *testing.T) {
	tests := []struct {
		name     string
		row      ClosureRow
		closable bool
	}{
		{
			name:     "fully picked",
			row:      ClosureRow{RequestedQty: 10, PickedQty: 10},
			closable: true,
		},
		{
			name:     "short but every allocation closed",
			row:      ClosureRow{RequestedQty: 10, PickedQty: 7, AllocationCount: 1, UnclosedCount: 0},
			closable: true,
		},
		{
			name:     "open allocation remains",
			row:      ClosureRow{RequestedQty: 10, PickedQty: 7, AllocationCount: 2, UnclosedCount: 1},
			closable: false,
		},
		{
			name:     "never allocated",
			row:      ClosureRow{RequestedQty: 10, PickedQty: 0},
			closable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.closable, tt.row.Closable())
		})
	}
}
