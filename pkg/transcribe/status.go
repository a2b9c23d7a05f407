package transcribe

// JobStatus is the server-side progress of a transcription job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in-progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further progress will be made.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the remote unit of work tracked by a Controller. ID is assigned by
// the service and never changes.
type Job struct {
	ID     string    `json:"jobId" yaml:"jobId"`
	Status JobStatus `json:"status" yaml:"status"`
}

// StatusResult is one decoded answer of the status endpoint.
type StatusResult struct {
	Status JobStatus `json:"status" yaml:"status"`
	// Transcript is set when Status is JobCompleted.
	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	// Reason is set when Status is JobFailed.
	Reason string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Err returns the JobFailed error for a failed result and nil otherwise.
func (r StatusResult) Err() error {
	if r.Status != JobFailed {
		return nil
	}
	return jobFailedError(r.Reason)
}
