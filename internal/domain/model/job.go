// Package model defines the core data types shared by the harvester crawl system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of a batch crawl job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusPending indicates a job has been seeded but never started.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job's batch loop is currently executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusPaused indicates a job was suspended, either explicitly or by
	// the abuse-ratio trip, and can be resumed.
	JobStatusPaused JobStatus = "paused"
	// JobStatusCompleted indicates every target reached a terminal state with
	// no pending work left. Terminal.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates an orchestration-level error aborted the loop.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled by a caller. Terminal.
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrNoJobsAvailable is returned when no runnable jobs exist.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobStatus is a recognized value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusPaused,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined out of the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// CanTransitionTo reports whether the status machine permits moving to next.
// pending → running; running → paused/completed/failed/cancelled;
// paused → running/cancelled; failed → running (explicit restart);
// completed and cancelled admit nothing.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusCancelled
	case JobStatusRunning:
		return next == JobStatusPaused || next == JobStatusCompleted ||
			next == JobStatusFailed || next == JobStatusCancelled
	case JobStatusPaused:
		return next == JobStatusRunning || next == JobStatusCancelled
	case JobStatusFailed:
		return next == JobStatusRunning || next == JobStatusCancelled
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus so env and
// store values are validated rather than silently accepted.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", string(text))
	}
	*s = v
	return nil
}

// Job is a named batch of crawl work bound to one immutable filter snapshot.
type Job struct {
	ID          string     `json:"id"                    db:"id"`
	Name        string     `json:"name"                  db:"name"`
	Description string     `json:"description"           db:"description"`
	Filter      FilterSpec `json:"filter"                db:"filter_json"`
	Extract     string     `json:"extract,omitempty"     db:"extract_expr"`
	Status      JobStatus  `json:"status"                db:"status"`
	Total       int        `json:"total"                 db:"total"`
	Completed   int        `json:"completed"             db:"completed"`
	Failed      int        `json:"failed"                db:"failed"`
	LastTarget  *string    `json:"last_target,omitempty" db:"last_target"`
	LastError   *string    `json:"last_error,omitempty"  db:"last_error"`
	CreatedAt   time.Time  `json:"created_at"            db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"            db:"updated_at"`
}

// CreateJobRequest carries the inputs for seeding a new batch crawl job.
type CreateJobRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Filter      FilterSpec `json:"filter"`
	// Extract is an optional JMESPath expression evaluated against each
	// successful fetch payload to produce a short harvest summary.
	Extract string `json:"extract,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("job name is required")
	}
	if len(r.Name) > 200 {
		return errors.New("job name must be at most 200 characters")
	}
	if err := r.Filter.Validate(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	return nil
}

// JobStats counts jobs by status.
type JobStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// TargetStats counts progress records by status across jobs.
type TargetStats struct {
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// Statistics aggregates job and target counts across the whole store.
type Statistics struct {
	Jobs        JobStats    `json:"jobs"`
	Targets     TargetStats `json:"targets"`
	RunningJobs []string    `json:"running_jobs"`
}
