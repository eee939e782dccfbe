package models

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func NewPriority(value string) (Priority, error) {
	priority := Priority(value)
	if !priority.isValid() {
		return "", fmt.Errorf("invalid priority: %s", value)
	}
	return priority, nil
}

func (p Priority) isValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	default:
		return false
	}
}

const (
	WorkOrderOpen      = "open"
	WorkOrderCompleted = "completed"
	WorkOrderCanceled  = "canceled"
)

// WorkOrder ("zadužnica") is one worker's assigned slice of a requisition.
// Created only through the assignment transaction.
type WorkOrder struct {
	ID             int             `json:"id" db:"id"`
	DocumentNumber string          `json:"document_number" db:"document_number"`
	RequisitionID  int             `json:"requisition_id" db:"requisition_id"`
	WorkerID       int             `json:"worker_id" db:"worker_id"`
	Priority       Priority        `json:"priority" db:"priority"`
	DueAt          *time.Time      `json:"due_at,omitempty" db:"due_at"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Items          []WorkOrderItem `json:"items" db:"-"`
}

// WorkOrderItem allocates a quantity of one line item to the work order.
// Allocation is a soft reservation: line-item remaining is recomputed from
// the sum of open allocations, never decremented in place.
type WorkOrderItem struct {
	ID           int     `json:"id" db:"id"`
	WorkOrderID  int     `json:"work_order_id" db:"work_order_id"`
	LineItemID   int     `json:"line_item_id" db:"line_item_id"`
	AllocatedQty float64 `json:"allocated_qty" db:"allocated_qty"`
	PickedQty    float64 `json:"picked_qty" db:"picked_qty"`
	Closed       bool    `json:"closed" db:"closed"`
}

func (w *WorkOrder) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   w.ID,
		ResourceType: "work_order",
	}
}
