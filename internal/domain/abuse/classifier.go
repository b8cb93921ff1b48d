// Package abuse inspects failed fetch outcomes for anti-automation
// countermeasures and suggests recovery actions.
package abuse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crawlspace/harvester/internal/domain/model"
)

// statusCodeTypes maps HTTP status codes to detection types. Checked first.
var statusCodeTypes = map[int]model.DetectionType{
	429: model.DetectionRateLimit,
	403: model.DetectionIPBlock,
	401: model.DetectionSessionExpired,
	500: model.DetectionServerError,
	502: model.DetectionServerError,
	503: model.DetectionServerError,
	504: model.DetectionServerError,
}

// bodyKeyword pairs a lowercase body substring with the detection it signals.
// Matching is ordered so the more specific phrases win.
type bodyKeyword struct {
	keyword string
	detType model.DetectionType
}

var bodyKeywords = []bodyKeyword{
	{"captcha", model.DetectionCaptcha},
	{"验证码", model.DetectionCaptcha},
	{"rate limit", model.DetectionRateLimit},
	{"too many requests", model.DetectionRateLimit},
	{"访问频率", model.DetectionRateLimit},
	{"blocked", model.DetectionIPBlock},
}

// headerSignals lists lowercase response header names that indicate
// throttling even when the status and body are unremarkable.
var headerSignals = []string{
	"retry-after",
	"x-ratelimit-remaining",
}

// Classifier assigns failed fetch outcomes to the detection taxonomy.
type Classifier struct {
	clock func() time.Time
}

// NewClassifier returns a Classifier using the system clock.
func NewClassifier() *Classifier {
	return &Classifier{clock: time.Now}
}

// NewClassifierWithClock returns a Classifier with a fixed clock for tests.
func NewClassifierWithClock(clock func() time.Time) *Classifier {
	return &Classifier{clock: clock}
}

// Classify evaluates a failed outcome against, in order, the status-code
// table, the body keyword table, and the throttle header list. The first
// match wins. A nil result means an ordinary error, not an abuse signal.
func (c *Classifier) Classify(statusCode int, bodyExcerpt string, headers map[string]string) *model.Detection {
	if detType, ok := statusCodeTypes[statusCode]; ok {
		return c.detection(detType, statusCode, headers,
			fmt.Sprintf("status code %d matched the anti-automation table", statusCode))
	}

	body := strings.ToLower(bodyExcerpt)
	for _, bk := range bodyKeywords {
		if strings.Contains(body, bk.keyword) {
			return c.detection(bk.detType, statusCode, headers,
				fmt.Sprintf("response body contains %q", bk.keyword))
		}
	}

	for _, name := range headerSignals {
		if _, ok := headerValue(headers, name); ok {
			return c.detection(model.DetectionRateLimit, statusCode, headers,
				fmt.Sprintf("response carries header %q", name))
		}
	}

	return nil
}

func (c *Classifier) detection(
	detType model.DetectionType,
	statusCode int,
	headers map[string]string,
	details string,
) *model.Detection {
	return &model.Detection{
		Type:           detType,
		DetectedAt:     c.clock(),
		Details:        details,
		StatusCode:     statusCode,
		Headers:        headers,
		RecoveryAction: c.RecoveryStrategy(&model.Detection{Type: detType, Headers: headers}).Action,
	}
}

// RecoveryStrategy derives the recommended reaction to a detection.
func (c *Classifier) RecoveryStrategy(d *model.Detection) model.RecoveryPlan {
	switch d.Type {
	case model.DetectionRateLimit:
		return model.RecoveryPlan{
			Action:            model.RecoverWaitAndRetry,
			Wait:              rateLimitWait(d.Headers),
			ReduceConcurrency: true,
			IncreaseDelay:     true,
		}
	case model.DetectionCaptcha:
		return model.RecoveryPlan{
			Action:    model.RecoverManualIntervention,
			AutoPause: true,
			Message:   "verification challenge requires manual handling",
		}
	case model.DetectionIPBlock:
		return model.RecoveryPlan{
			Action:  model.RecoverChangeIP,
			Wait:    5 * time.Minute,
			Message: "source address is blocked; rotate egress or wait",
		}
	case model.DetectionSessionExpired:
		return model.RecoveryPlan{
			Action:  model.RecoverRefreshSession,
			Message: "session expired; refresh credentials",
		}
	case model.DetectionServerError:
		return model.RecoveryPlan{
			Action:     model.RecoverRetryLater,
			Wait:       30 * time.Second,
			MaxRetries: 5,
		}
	case model.DetectionNetworkError:
		return model.RecoveryPlan{
			Action:     model.RecoverRetryImmediately,
			MaxRetries: 3,
		}
	case model.DetectionUserAgentBlock:
		return model.RecoveryPlan{
			Action:  model.RecoverPauseAndInvestigate,
			Message: "client signature rejected; rotate user agent",
		}
	}
	return model.RecoveryPlan{
		Action:  model.RecoverPauseAndInvestigate,
		Message: "unrecognized signal; pause the job and investigate",
	}
}

// rateLimitWait honors a parseable Retry-After header, falling back to 60s.
func rateLimitWait(headers map[string]string) time.Duration {
	if raw, ok := headerValue(headers, "retry-after"); ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 60 * time.Second
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
