package scheduler

import (
	"sync"
	"time"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

// LockManager is the suggestion cache and lock table, keyed by requisition
// id. Every entry carries its own mutex, so sessions on different
// requisitions never contend; operations on the same requisition serialize
// through the entry. A lock past its expiry is treated as absent — expiry is
// checked lazily, the periodic sweep only frees memory.
type LockManager struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // requisition id -> *sessionEntry
}

type sessionEntry struct {
	mu         sync.Mutex
	suggestion *models.Suggestion
	holder     string
	expiresAt  time.Time
}

func NewLockManager(ttl time.Duration) *LockManager {
	return &LockManager{
		ttl: ttl,
		now: time.Now,
	}
}

func (m *LockManager) entry(requisitionID int) *sessionEntry {
	v, _ := m.entries.LoadOrStore(requisitionID, &sessionEntry{})
	return v.(*sessionEntry)
}

func (e *sessionEntry) live(now time.Time) bool {
	return e.holder != "" && now.Before(e.expiresAt)
}

// GetOrCompute returns the cached suggestion for the requisition while its
// lock is live, or computes a fresh one and acquires the lock for the caller.
// When two callers race, exactly one computes; the other is handed the
// winner's suggestion with cached=true and the lock is not touched.
func (m *LockManager) GetOrCompute(requisitionID int, holder string, compute func() (*models.Suggestion, error)) (*models.Suggestion, error) {
	e := m.entry(requisitionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if e.suggestion != nil && e.live(now) {
		cached := *e.suggestion
		cached.Cached = true
		expiresAt := e.expiresAt
		cached.LockExpiresAt = &expiresAt
		return &cached, nil
	}

	suggestion, err := compute()
	if err != nil {
		return nil, err
	}

	e.suggestion = suggestion
	e.holder = holder
	e.expiresAt = now.Add(m.ttl)

	fresh := *suggestion
	fresh.Cached = false
	expiresAt := e.expiresAt
	fresh.LockExpiresAt = &expiresAt
	return &fresh, nil
}

// AcquireLock reserves the requisition for a scheduling session. Fail-fast:
// a live lock held by someone else is reported immediately, never waited on.
func (m *LockManager) AcquireLock(requisitionID int, holder string) error {
	e := m.entry(requisitionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if e.live(now) && e.holder != holder {
		return &apperrors.AlreadyLockedError{
			RequisitionID: requisitionID,
			Holder:        e.holder,
			ExpiresAt:     e.expiresAt,
		}
	}

	e.holder = holder
	e.expiresAt = now.Add(m.ttl)
	return nil
}

// CheckHeld verifies the caller still owns a live lock on the requisition.
// Used as the assignment precondition for the suggestion flow.
func (m *LockManager) CheckHeld(requisitionID int, holder string) error {
	v, ok := m.entries.Load(requisitionID)
	if !ok {
		return &apperrors.LockExpiredError{RequisitionID: requisitionID}
	}

	e := v.(*sessionEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	if !e.live(now) {
		return &apperrors.LockExpiredError{RequisitionID: requisitionID}
	}
	if e.holder != holder {
		return &apperrors.AlreadyLockedError{
			RequisitionID: requisitionID,
			Holder:        e.holder,
			ExpiresAt:     e.expiresAt,
		}
	}

	return nil
}

// Cancel releases the lock and drops the cached suggestion regardless of
// expiry. Serves both the explicit discard ("poništi") and the first half of
// "new suggestion".
func (m *LockManager) Cancel(requisitionID int) {
	v, ok := m.entries.Load(requisitionID)
	if !ok {
		return
	}

	e := v.(*sessionEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.suggestion = nil
	e.holder = ""
	e.expiresAt = time.Time{}
}

// Release drops the scheduling session after a successful assignment.
func (m *LockManager) Release(requisitionID int) {
	m.Cancel(requisitionID)
}

// Sweep removes entries whose lock has expired. Correctness never depends on
// it; a swept entry is indistinguishable from an expired one.
func (m *LockManager) Sweep() {
	now := m.now()
	m.entries.Range(func(key, value any) bool {
		e := value.(*sessionEntry)
		e.mu.Lock()
		expired := !e.live(now)
		if expired {
			e.suggestion = nil
			e.holder = ""
		}
		e.mu.Unlock()

		if expired {
			m.entries.Delete(key)
		}
		return true
	})
}

// StartSweeper runs Sweep on a fixed interval for the lifetime of the
// process.
func (m *LockManager) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			m.Sweep()
		}
	}()
}
