package execution

import (
	"errors"
	"time"

	"github.com/isdmx/execbox/sandbox"
)

// Status is the lifecycle state of an execution
type Status string

// Execution statuses. StatusRunning is never persisted and StatusTimeout is
// not produced by the runner path, which records timeouts as StatusFailed.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// ErrAlreadyTerminal is returned when a finished record is finished again.
var ErrAlreadyTerminal = errors.New("execution already finished")

// Record is the externally visible state of one execution
type Record struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	Language       string     `json:"language"`
	Code           string     `json:"code"`
	Input          *string    `json:"input"`
	TimeoutSeconds int        `json:"timeoutSeconds"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	Output         *string    `json:"output"`
	Error          *string    `json:"error"`
}

func newRecord(id string, job Job, now time.Time) *Record {
	return &Record{
		ID:             id,
		Status:         StatusPending,
		Language:       job.Language,
		Code:           job.Code,
		Input:          job.Input,
		TimeoutSeconds: job.TimeoutSeconds,
		StartTime:      now.UTC(),
	}
}

// Complete records a successful run. Stderr is kept in Error when the
// program wrote any.
func (r *Record) Complete(out sandbox.Output, now time.Time) error {
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	stdout := out.Stdout
	r.Output = &stdout
	if out.Stderr != "" {
		stderr := out.Stderr
		r.Error = &stderr
	}
	r.finish(StatusCompleted, now)
	return nil
}

// Fail records an infrastructure failure or timeout
func (r *Record) Fail(message string, now time.Time) error {
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	r.Output = nil
	r.Error = &message
	r.finish(StatusFailed, now)
	return nil
}

func (r *Record) finish(status Status, now time.Time) {
	end := now.UTC()
	r.Status = status
	r.EndTime = &end
}
