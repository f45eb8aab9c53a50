// Package approval implements the human approval gate the orchestrator
// blocks on before executing stages that autonomy policy requires a
// person to sign off on.
package approval

import (
	"time"

	"github.com/caseforge/caseforge/pkg/models"
)

// State is one of the approval state machine's states. pending is the only
// non-terminal state.
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
)

func (s State) Terminal() bool {
	return s != StatePending
}

// Approval is a single approval gate request.
type Approval struct {
	ID        string
	CaseID    string
	Stage     string
	Description string
	Status    State
	CreatedAt time.Time
	ExpiresAt time.Time
	DecidedBy *string
	DecidedAt *time.Time
	Reason    *string
}

// Timeout returns the default wait_for timeout for an autonomy level:
// 15 minutes for supervised, 30 minutes for every other level. research
// gates its correlation and response stages and so gets the 30-minute
// value; autonomous never requests approval.
func Timeout(level models.AutonomyLevel) time.Duration {
	switch level {
	case models.AutonomySupervised:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}
