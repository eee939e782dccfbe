package metadata

import "fmt"

type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

func NewStatus(value string) (Status, error) {
	status := Status(value)
	if !status.isValid() {
		return "", fmt.Errorf("invalid requisition status: %s", value)
	}
	return status, nil
}

func (s Status) isValid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransition encodes the requisition lifecycle:
// new → assigned → in_progress → done, with failed reachable from any
// non-terminal state by explicit operator action.
func (s Status) CanTransition(to Status) bool {
	if s.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}

	switch s {
	case StatusNew:
		return to == StatusAssigned
	case StatusAssigned:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusDone
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
