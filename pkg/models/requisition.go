package models

import (
	"time"
)

// Requisition is a pick-list document ("trebovanje") requesting items be
// moved from a source warehouse to a destination store. Created by upstream
// import, mutated only by the scheduler (status) and fulfillment (quantities).
type Requisition struct {
	ID               int        `json:"id" db:"id"`
	DocumentNumber   string     `json:"document_number" db:"document_number"`
	DocumentDate     time.Time  `json:"document_date" db:"document_date"`
	SourceWarehouse  string     `json:"source_warehouse" db:"source_warehouse"`
	DestinationStore string     `json:"destination_store" db:"destination_store"`
	Status           string     `json:"status" db:"status"`
	Items            []LineItem `json:"items" db:"-"`
}

// LineItem is one article line ("stavka") within a requisition.
type LineItem struct {
	ID            int     `json:"id" db:"id"`
	RequisitionID int     `json:"requisition_id" db:"requisition_id"`
	ArticleCode   string  `json:"article_code" db:"article_code"`
	ArticleName   string  `json:"article_name" db:"article_name"`
	RequestedQty  float64 `json:"requested_qty" db:"requested_qty"`
	PickedQty     float64 `json:"picked_qty" db:"picked_qty"`
	Status        string  `json:"status" db:"status"`
}

// Remaining is always recomputed, never stored.
func (li *LineItem) Remaining() float64 {
	remaining := li.RequestedQty - li.PickedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (r *Requisition) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   r.ID,
		ResourceType: "requisition",
	}
}
