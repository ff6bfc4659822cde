// Package extractor turns raw text into candidate proposal items.
// Its output is untrusted: nothing it returns reaches live tables without
// passing human approval and the allow-list.
package extractor

import "safetyagent/internal/model"

// Result is what a classification run yields. Proposals may be empty.
type Result struct {
	Proposals []model.ProposedItem `json:"proposals"`
	Facts     []string             `json:"facts"`
}

// Extractor classifies free text into proposed writes and human-readable facts.
// Implementations must be free of side effects.
type Extractor interface {
	Classify(text string) Result
}
