package model

import (
	"fmt"
	"strings"
	"time"
)

// ProgressStatus represents the lifecycle state of a single target within a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ProgressStatus string

const (
	// ProgressPending indicates a target awaits processing. The set of a job's
	// pending records is its resume checkpoint.
	ProgressPending ProgressStatus = "pending"
	// ProgressProcessing indicates a target is claimed and being fetched.
	ProgressProcessing ProgressStatus = "processing"
	// ProgressCompleted indicates a target was fetched successfully. Terminal.
	ProgressCompleted ProgressStatus = "completed"
	// ProgressFailed indicates retries were exhausted or a non-retryable
	// outcome occurred. Terminal.
	ProgressFailed ProgressStatus = "failed"
)

// Valid returns true if the ProgressStatus is a recognized value.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressPending, ProgressProcessing, ProgressCompleted, ProgressFailed:
		return true
	}
	return false
}

// Terminal reports whether the status ends a target's lifecycle.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for ProgressStatus.
func (s *ProgressStatus) UnmarshalText(text []byte) error {
	v := ProgressStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid ProgressStatus: %q", string(text))
	}
	*s = v
	return nil
}

// ProgressRecord tracks one target of one job. Unique per (job, target).
type ProgressRecord struct {
	ID            int64          `json:"id"              db:"id"`
	JobID         string         `json:"job_id"          db:"job_id"`
	TargetID      string         `json:"target_id"       db:"target_id"`
	TargetAddress string         `json:"target_address"  db:"target_address"`
	Status        ProgressStatus `json:"status"          db:"status"`
	Error         string         `json:"error,omitempty" db:"error"`
	RetryCount    int            `json:"retry_count"     db:"retry_count"`
	CreatedAt     time.Time      `json:"created_at"      db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"      db:"updated_at"`
}

// Target is one unit of work resolved from the catalog.
type Target struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// LastProcessed identifies the most recently finished target of a job.
type LastProcessed struct {
	TargetID      string    `json:"target_id"`
	TargetAddress string    `json:"target_address"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResumeInfo describes a job's checkpoint: what remains, what finished last,
// and any recent abuse detections that explain why it stopped.
type ResumeInfo struct {
	StatusCounts       map[ProgressStatus]int `json:"status_counts"`
	LastProcessed      *LastProcessed         `json:"last_processed,omitempty"`
	RecentDetections   []Detection            `json:"recent_detections,omitempty"`
	CanResume          bool                   `json:"can_resume"`
	ProgressPercentage float64                `json:"progress_percentage"`
}
