// Package harvest interprets fetched payloads: optional JMESPath summaries
// for job bookkeeping and host labels for abuse reporting.
package harvest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Extractor evaluates a job's extraction expression against successful fetch
// payloads to produce a short human-readable summary.
type Extractor struct {
	expr string
}

// NewExtractor validates and wraps a JMESPath expression. An empty expression
// yields a no-op extractor.
func NewExtractor(expr string) (*Extractor, error) {
	expr = strings.TrimSpace(expr)
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile extract expression: %w", err)
		}
	}
	return &Extractor{expr: expr}, nil
}

// Enabled reports whether the extractor carries an expression.
func (e *Extractor) Enabled() bool {
	return e != nil && e.expr != ""
}

// Summarize evaluates the expression against the payload and renders the
// result as a short string. Nil results and evaluation errors yield "".
func (e *Extractor) Summarize(payload json.RawMessage) string {
	if !e.Enabled() || len(payload) == 0 {
		return ""
	}

	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return ""
	}
	result, err := jmespath.Search(e.expr, data)
	if err != nil || result == nil {
		return ""
	}

	switch v := result.(type) {
	case string:
		return truncate(v, maxSummaryLen)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			return ""
		}
		return truncate(string(encoded), maxSummaryLen)
	}
}

const maxSummaryLen = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
