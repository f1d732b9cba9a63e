// Package naming suggests human-readable labels for unnamed identities
// using a vision model on the identity's cover crop. Suggestions are
// advisory; an operator confirms them via the rename operation.
package naming

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed prompts/identity_label.txt
var identityLabelPrompt string

// Suggestion is a proposed label for an identity.
type Suggestion struct {
	// Label is a short handle, e.g. "woman with red glasses".
	Label string `json:"label"`
	// Description adds a sentence of visual detail.
	Description string `json:"description"`
	// Confidence is the model's own estimate, 0-1.
	Confidence float64 `json:"confidence"`
}

// Provider defines the interface for label suggestion backends.
type Provider interface {
	Name() string
	SuggestLabel(ctx context.Context, coverJPEG []byte, faceCount int) (*Suggestion, error)
}

// Usage tracks token consumption across calls.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

func buildPrompt(faceCount int) string {
	return fmt.Sprintf(identityLabelPrompt, faceCount)
}
