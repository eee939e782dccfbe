package models

import "time"

// Suggestion is the scheduler's recommendation for a requisition. Ephemeral:
// lives only in the suggestion cache, recomputed on demand.
type Suggestion struct {
	RequisitionID int        `json:"requisition_id"`
	WorkerID      int        `json:"worker_id"`
	WorkerName    string     `json:"worker_name"`
	Score         float64    `json:"score"`
	Reason        string     `json:"reason"`
	Cached        bool       `json:"cached"`
	LockExpiresAt *time.Time `json:"lock_expires_at,omitempty"`
}

// WorkerMetrics is the per-worker rolling performance snapshot consumed by
// the scorer. Each signal is an explicit field so scoring stays auditable.
type WorkerMetrics struct {
	WorkerID             int     `json:"worker_id" db:"worker_id"`
	WorkerName           string  `json:"worker_name" db:"worker_name"`
	OpenTaskCount        int     `json:"open_task_count" db:"open_task_count"`
	EfficiencyScore      float64 `json:"efficiency_score" db:"efficiency_score"`
	AvgCompletionMinutes float64 `json:"avg_completion_minutes" db:"avg_completion_minutes"`
	IdlePercent          float64 `json:"idle_percent" db:"idle_percent"`
}
