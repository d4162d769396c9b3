// Package moderation screens article text through a text-moderation provider
// before it is published. It supports a global kill-switch, a local simulate
// mode driven by a forbidden-term list, and the Baidu text censor API with
// OAuth client-credentials tokens.
package moderation

import (
	"context"
	"errors"
)

// Conclusion is the normalized verdict for a piece of text.
type Conclusion string

// Conclusions.
const (
	ConclusionCompliant    Conclusion = "compliant"
	ConclusionNonCompliant Conclusion = "non_compliant"
	ConclusionDisabled     Conclusion = "disabled"
	ConclusionUnknown      Conclusion = "unknown"
)

// Provider conclusion codes.
const (
	codeCompliant    = 1
	codeNonCompliant = 2
)

// ErrUnavailable is returned when the provider could not produce a verdict.
var ErrUnavailable = errors.New("moderation provider unavailable")

// Violation is one flagged finding.
type Violation struct {
	Words       []string `json:"words"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

// Result is the outcome of a moderation call.
type Result struct {
	Conclusion   Conclusion  `json:"conclusion"`
	Violations   []Violation `json:"violations,omitempty"`
	Bypassed     bool        `json:"bypassed,omitempty"`
	Message      string      `json:"message,omitempty"`
	ProviderCode int         `json:"provider_code,omitempty"`
}

// Words returns every flagged word across all violations, in order.
func (r *Result) Words() []string {
	var out []string
	for _, v := range r.Violations {
		out = append(out, v.Words...)
	}
	return out
}

// Auditor screens text.
type Auditor interface {
	Audit(ctx context.Context, text string) (*Result, error)
}

func conclusionFromCode(code int) Conclusion {
	switch code {
	case codeCompliant:
		return ConclusionCompliant
	case codeNonCompliant:
		return ConclusionNonCompliant
	default:
		return ConclusionUnknown
	}
}
