package core

import (
	"context"
	"encoding/json"

	"github.com/crawlspace/harvester/internal/domain/model"
)

// FetchResult is the outcome of one fetch attempt. Data is populated on
// success; StatusCode, BodyExcerpt and Headers describe protocol failures and
// feed the abuse classifier.
type FetchResult struct {
	Data        json.RawMessage
	StatusCode  int
	BodyExcerpt string
	Headers     map[string]string
}

// OK reports whether the attempt succeeded.
func (r *FetchResult) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves one target from the external platform. Implementations
// (browser automation, request signing, cookie handling) live outside the
// core. A non-nil error means the attempt never produced a response
// (transport failure); protocol failures come back as a FetchResult.
type Fetcher interface {
	Fetch(ctx context.Context, target model.Target) (*FetchResult, error)
}
