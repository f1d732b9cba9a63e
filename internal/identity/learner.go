package identity

import (
	"time"

	"github.com/google/uuid"
)

// Learner grows an identity's sample set one embedding at a time and
// keeps it bounded by evicting the most redundant sample.
type Learner struct {
	maxSamples int
}

func NewLearner(maxSamples int) *Learner {
	return &Learner{maxSamples: maxSamples}
}

// Absorb adds an embedding to the identity as a new sample, evicting
// one sample when the set exceeds the bound. Returns the new sample
// and the ID of the evicted sample, if any.
func (l *Learner) Absorb(id *Identity, embedding []float32, now time.Time) (Sample, string) {
	sample := Sample{
		ID:        uuid.NewString(),
		Embedding: embedding,
		AddedAt:   now,
	}
	id.Samples = append(id.Samples, sample)
	id.SampleCount++
	id.UpdatedAt = now

	var evicted string
	if len(id.Samples) > l.maxSamples {
		evicted = l.evict(id)
	}
	return sample, evicted
}

// evict removes the most redundant sample: the one with the smallest
// mean distance to the rest of the set, since it carries the least
// information about the identity's variation. Ties evict the oldest.
func (l *Learner) evict(id *Identity) string {
	n := len(id.Samples)
	victim := 0
	victimMean := -1.0

	for i := 0; i < n; i++ {
		var total float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			total += CosineDistance(id.Samples[i].Embedding, id.Samples[j].Embedding)
		}
		mean := total / float64(n-1)

		switch {
		case victimMean < 0 || mean < victimMean:
			victim, victimMean = i, mean
		case mean == victimMean && id.Samples[i].AddedAt.Before(id.Samples[victim].AddedAt):
			victim = i
		}
	}

	evicted := id.Samples[victim].ID
	id.Samples = append(id.Samples[:victim], id.Samples[victim+1:]...)
	return evicted
}
