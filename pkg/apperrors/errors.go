package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind groups failures the way the dashboard reacts to them: validation is a
// caller bug, conflict means "retry with a fresh suggestion", not-found and
// terminal are hard stops. Handlers map kinds to HTTP status codes instead of
// string-matching error messages.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindTerminal   Kind = "terminal_state"
)

type kinder interface {
	Kind() Kind
}

func KindOf(err error) (Kind, bool) {
	var k kinder
	if errors.As(err, &k) {
		return k.Kind(), true
	}
	return "", false
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

type TerminalStateError struct {
	RequisitionID int
	Status        string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("requisition %d is in terminal state %s", e.RequisitionID, e.Status)
}

func (e *TerminalStateError) Kind() Kind { return KindTerminal }

// AlreadyLockedError reports a live scheduling lock held by someone else.
type AlreadyLockedError struct {
	RequisitionID int
	Holder        string
	ExpiresAt     time.Time
}

func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("requisition %d is locked by another scheduling session until %s",
		e.RequisitionID, e.ExpiresAt.Format(time.RFC3339))
}

func (e *AlreadyLockedError) Kind() Kind { return KindConflict }

// LockExpiredError reports that the caller's scheduling session is no longer
// live; the assignment must go through a fresh suggestion or an override.
type LockExpiredError struct {
	RequisitionID int
}

func (e *LockExpiredError) Error() string {
	return fmt.Sprintf("scheduling session for requisition %d has expired", e.RequisitionID)
}

func (e *LockExpiredError) Kind() Kind { return KindConflict }

// OverAllocationError is reported per offending line item, with enough detail
// for the operator to retry with corrected quantities.
type OverAllocationError struct {
	LineItemID   int
	RequestedQty float64
	Remaining    float64
	Allocatable  float64
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("line item %d: requested allocation %.3f exceeds allocatable %.3f (remaining %.3f)",
		e.LineItemID, e.RequestedQty, e.Allocatable, e.Remaining)
}

func (e *OverAllocationError) Kind() Kind { return KindConflict }

type NoEligibleWorkerError struct {
	Warehouse string
}

func (e *NoEligibleWorkerError) Error() string {
	return fmt.Sprintf("no active worker available at %s", e.Warehouse)
}

func (e *NoEligibleWorkerError) Kind() Kind { return KindConflict }

type NoItemsEligibleError struct {
	RequisitionID int
}

func (e *NoItemsEligibleError) Error() string {
	return fmt.Sprintf("requisition %d has no line items left to allocate", e.RequisitionID)
}

func (e *NoItemsEligibleError) Kind() Kind { return KindConflict }

type LineItemNotInWorkOrderError struct {
	WorkOrderID int
	LineItemID  int
}

func (e *LineItemNotInWorkOrderError) Error() string {
	return fmt.Sprintf("line item %d is not part of work order %d", e.LineItemID, e.WorkOrderID)
}

func (e *LineItemNotInWorkOrderError) Kind() Kind { return KindNotFound }

type NegativePickError struct {
	Qty float64
}

func (e *NegativePickError) Error() string {
	return fmt.Sprintf("picked quantity must not be negative, got %.3f", e.Qty)
}

func (e *NegativePickError) Kind() Kind { return KindValidation }

type ClassificationRequiredError struct {
	LineItemID int
	MissingQty float64
}

func (e *ClassificationRequiredError) Error() string {
	return fmt.Sprintf("line item %d closed with %.3f missing: classification is required", e.LineItemID, e.MissingQty)
}

func (e *ClassificationRequiredError) Kind() Kind { return KindValidation }
