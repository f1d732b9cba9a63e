package identity

// Matcher scores embeddings against identities. The score of an
// identity is the distance of its closest sample, so one good match
// among the samples is enough to claim the embedding.
type Matcher struct {
	threshold float64 // minimum confidence to join an identity
}

func NewMatcher(confidenceThreshold float64) *Matcher {
	return &Matcher{threshold: confidenceThreshold}
}

// Score returns the minimum cosine distance between the embedding and
// the identity's samples. An identity without samples scores the
// maximum distance.
func (m *Matcher) Score(id *Identity, embedding []float32) float64 {
	best := 2.0
	for i := range id.Samples {
		if d := CosineDistance(embedding, id.Samples[i].Embedding); d < best {
			best = d
		}
	}
	return best
}

// Accepts reports whether a distance is close enough to join an
// identity. A confidence exactly at the threshold counts as a match.
func (m *Matcher) Accepts(distance float64) bool {
	return Confidence(distance) >= m.threshold
}

// Best returns the closest identity among the candidates, or nil when
// there are none. Ties keep the first candidate encountered.
func (m *Matcher) Best(candidates []*Identity, embedding []float32) (*Identity, float64) {
	var best *Identity
	bestDistance := 2.0
	for _, id := range candidates {
		if d := m.Score(id, embedding); d < bestDistance {
			best = id
			bestDistance = d
		}
	}
	return best, bestDistance
}
