package model

import (
	"fmt"
	"strings"
	"time"
)

// DetectionType is the fixed taxonomy of anti-automation signals.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type DetectionType string

const (
	// DetectionRateLimit indicates the platform throttled request frequency.
	DetectionRateLimit DetectionType = "rate_limit"
	// DetectionCaptcha indicates a verification challenge was served.
	DetectionCaptcha DetectionType = "captcha"
	// DetectionIPBlock indicates the source address is blocked.
	DetectionIPBlock DetectionType = "ip_block"
	// DetectionUserAgentBlock indicates the client signature is blocked.
	DetectionUserAgentBlock DetectionType = "user_agent_block"
	// DetectionSessionExpired indicates credentials or cookies went stale.
	DetectionSessionExpired DetectionType = "session_expired"
	// DetectionNetworkError indicates a transport-level failure.
	DetectionNetworkError DetectionType = "network_error"
	// DetectionServerError indicates a 5xx response from the platform.
	DetectionServerError DetectionType = "server_error"
	// DetectionUnknown covers signals outside the known patterns.
	DetectionUnknown DetectionType = "unknown"
)

// Valid returns true if the DetectionType is a recognized value.
func (t DetectionType) Valid() bool {
	switch t {
	case DetectionRateLimit, DetectionCaptcha, DetectionIPBlock,
		DetectionUserAgentBlock, DetectionSessionExpired,
		DetectionNetworkError, DetectionServerError, DetectionUnknown:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for DetectionType.
func (t *DetectionType) UnmarshalText(text []byte) error {
	v := DetectionType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid DetectionType: %q", string(text))
	}
	*t = v
	return nil
}

// Detection is an append-only abuse log entry. Entries are never mutated
// except to backfill RecoveryTime once the condition clears.
type Detection struct {
	ID             int64             `json:"id"                       db:"id"`
	JobID          *string           `json:"job_id,omitempty"         db:"job_id"`
	Type           DetectionType     `json:"type"                     db:"type"`
	DetectedAt     time.Time         `json:"detected_at"              db:"detected_at"`
	Details        string            `json:"details"                  db:"details"`
	StatusCode     int               `json:"status_code"              db:"status_code"`
	Headers        map[string]string `json:"headers,omitempty"        db:"headers_json"`
	RecoveryAction RecoveryAction    `json:"recovery_action"          db:"recovery_action"`
	RecoveryTime   *time.Time        `json:"recovery_time,omitempty"  db:"recovery_time"`
}

// RecoveryAction labels the suggested reaction to a detection.
type RecoveryAction string

const (
	// RecoverWaitAndRetry waits out a throttle window before retrying.
	RecoverWaitAndRetry RecoveryAction = "wait_and_retry"
	// RecoverManualIntervention needs a human, e.g. to solve a captcha.
	RecoverManualIntervention RecoveryAction = "manual_intervention"
	// RecoverChangeIP needs a different egress address.
	RecoverChangeIP RecoveryAction = "change_ip"
	// RecoverRefreshSession needs fresh credentials or cookies.
	RecoverRefreshSession RecoveryAction = "refresh_session"
	// RecoverRetryLater retries after a short delay.
	RecoverRetryLater RecoveryAction = "retry_later"
	// RecoverRetryImmediately retries without delay.
	RecoverRetryImmediately RecoveryAction = "retry_immediately"
	// RecoverPauseAndInvestigate stops work pending investigation.
	RecoverPauseAndInvestigate RecoveryAction = "pause_and_investigate"
)

// RecoveryPlan is the concrete advice derived from a detection.
type RecoveryPlan struct {
	Action RecoveryAction `json:"action"`
	// Wait is how long to back off before the action, zero when not needed.
	Wait time.Duration `json:"wait"`
	// AutoPause recommends pausing the owning job before anything else.
	AutoPause bool `json:"auto_pause"`
	// ReduceConcurrency recommends shrinking the per-batch fetch limit.
	ReduceConcurrency bool `json:"reduce_concurrency"`
	// IncreaseDelay recommends a longer inter-batch delay.
	IncreaseDelay bool `json:"increase_delay"`
	// MaxRetries caps attempts for the action, zero when not applicable.
	MaxRetries int `json:"max_retries,omitempty"`
	// Message is operator-facing advice.
	Message string `json:"message,omitempty"`
}
