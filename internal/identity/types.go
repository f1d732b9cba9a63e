// Package identity clusters face embeddings into person identities.
// Matching is incremental: each new embedding either joins the closest
// known identity or mints a new, unnamed one.
package identity

import "time"

// Sample is one face embedding kept as a representative of an identity.
// Embeddings are unit-normalized on the way in.
type Sample struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	AddedAt   time.Time `json:"added_at"`
}

// Identity is one clustered person. A freshly minted identity has no
// name; naming is an explicit admin action, not a matching concern.
type Identity struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Samples []Sample `json:"samples"`

	// SampleCount is the total number of embeddings ever assigned,
	// including those evicted from the sample set. Monotonic.
	SampleCount int64 `json:"sample_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Named reports whether the identity has been given a display name.
func (i *Identity) Named() bool {
	return i.Name != ""
}

// MatchResult describes where one embedding ended up.
type MatchResult struct {
	IdentityID string  `json:"identity_id"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	Matched    bool    `json:"matched"` // joined an existing identity
	Created    bool    `json:"created"` // minted a new identity
}
