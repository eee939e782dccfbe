package models

// Worker is a warehouse picker eligible for work-order assignment.
type Worker struct {
	ID        int    `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Warehouse string `json:"warehouse" db:"warehouse"`
	Active    bool   `json:"active" db:"active"`
	TeamID    *int   `json:"team_id,omitempty" db:"team_id"`
}

// Team is exactly two workers sharing a shift, eligible for split assignment.
// A worker belongs to at most one active team at a time.
type Team struct {
	ID        int    `json:"id" db:"id"`
	WorkerAID int    `json:"worker_a_id" db:"worker_a_id"`
	WorkerBID int    `json:"worker_b_id" db:"worker_b_id"`
	Shift     string `json:"shift" db:"shift"`
	Active    bool   `json:"active" db:"active"`
}

func (t *Team) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   t.ID,
		ResourceType: "team",
	}
}
