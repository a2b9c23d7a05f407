package transcribe

import "fmt"

// Phase is the externally observable phase of a Controller.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// SessionState is the single source of truth for what a caller should report.
// JobID is set while polling and in terminal states reached by polling;
// Transcript only in PhaseCompleted; Reason and Err only in PhaseFailed.
type SessionState struct {
	Phase      Phase  `json:"phase" yaml:"phase"`
	JobID      string `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Err        error  `json:"-" yaml:"-"`
}

func idleState() SessionState {
	return SessionState{Phase: PhaseIdle}
}

func submittingState() SessionState {
	return SessionState{Phase: PhaseSubmitting}
}

func pollingState(jobID string) SessionState {
	return SessionState{Phase: PhasePolling, JobID: jobID}
}

func completedState(jobID, transcript string) SessionState {
	return SessionState{Phase: PhaseCompleted, JobID: jobID, Transcript: transcript}
}

func failedState(jobID string, err error) SessionState {
	return SessionState{Phase: PhaseFailed, JobID: jobID, Reason: Reason(err), Err: err}
}

// IsTerminal reports whether the state is Completed or Failed.
func (s SessionState) IsTerminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

func (s SessionState) String() string {
	switch s.Phase {
	case PhasePolling:
		return fmt.Sprintf("polling(%s)", s.JobID)
	case PhaseCompleted:
		return fmt.Sprintf("completed(%d chars)", len([]rune(s.Transcript)))
	case PhaseFailed:
		return fmt.Sprintf("failed(%s)", s.Reason)
	default:
		return string(s.Phase)
	}
}
