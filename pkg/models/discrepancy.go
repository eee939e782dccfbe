package models

import (
	"fmt"
	"time"
)

type Classification string

const (
	ClassificationShortPick Classification = "short_pick"
	ClassificationNotFound  Classification = "not_found"
	ClassificationDamaged   Classification = "damaged"
)

func NewClassification(value string) (Classification, error) {
	classification := Classification(value)
	if !classification.isValid() {
		return "", fmt.Errorf("invalid classification: %s", value)
	}
	return classification, nil
}

func (c Classification) isValid() bool {
	switch c {
	case ClassificationShortPick, ClassificationNotFound, ClassificationDamaged:
		return true
	default:
		return false
	}
}

// Discrepancy records a shortfall on a closed work-order item: the worker
// declared the item finished with picked < allocated.
type Discrepancy struct {
	ID              int            `json:"id" db:"id"`
	WorkOrderID     int            `json:"work_order_id" db:"work_order_id"`
	LineItemID      int            `json:"line_item_id" db:"line_item_id"`
	WorkerID        int            `json:"worker_id" db:"worker_id"`
	RequiredQty     float64        `json:"required_qty" db:"required_qty"`
	PickedQty       float64        `json:"picked_qty" db:"picked_qty"`
	MissingQty      float64        `json:"missing_qty" db:"missing_qty"`
	Classification  Classification `json:"classification" db:"classification"`
	Reason          string         `json:"reason" db:"reason"`
	CompletedAt     time.Time      `json:"completed_at" db:"completed_at"`
}

func (d *Discrepancy) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   d.ID,
		ResourceType: "discrepancy",
	}
}
