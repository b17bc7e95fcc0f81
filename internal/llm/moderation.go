package llm

import (
	"encoding/json"
	"strings"
)

// Moderation sources.
const (
	SourceCustomTerms = "custom_terms"
	SourceVendor      = "vendor"
)

// ModerationResult is the verdict for one user message.
type ModerationResult struct {
	Flagged    bool     `json:"flagged"`
	Source     string   `json:"source,omitempty"`
	CustomTerm string   `json:"custom_term,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Details renders the result for the audit log.
func (r *ModerationResult) Details() string {
	if r == nil {
		return ""
	}
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

// CustomTermHit returns the first term contained in text, compared
// case-insensitively. Blank terms never match.
func CustomTermHit(text string, terms []string) (string, bool) {
	if text == "" || len(terms) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		norm := strings.ToLower(strings.TrimSpace(term))
		if norm != "" && strings.Contains(lower, norm) {
			return term, true
		}
	}
	return "", false
}
