package identity

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openscrape/facedex/internal/config"
)

var (
	ErrNotFound  = errors.New("identity not found")
	ErrSelfMerge = errors.New("cannot merge an identity into itself")
)

// candidateK is how many nearest samples the index returns per lookup.
const candidateK = 10

// Registry holds all known identities and assigns embeddings to them.
// All operations are safe for concurrent use; Resolve runs match and
// commit under one lock so two similar embeddings arriving together
// cannot each mint a separate identity.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]*Identity

	matcher *Matcher
	learner *Learner
	index   *sampleIndex // nil when the ANN index is disabled

	embeddingDim int
	now          func() time.Time
}

func NewRegistry(cfg config.MatchingConfig) *Registry {
	r := &Registry{
		identities:   make(map[string]*Identity),
		matcher:      NewMatcher(cfg.ConfidenceThreshold),
		learner:      NewLearner(cfg.MaxSamplesPerIdentity),
		embeddingDim: cfg.EmbeddingDim,
		now:          time.Now,
	}
	if cfg.HNSWIndex {
		r.index = newSampleIndex()
	}
	return r
}

func (r *Registry) checkDim(embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}
	if r.embeddingDim > 0 && len(embedding) != r.embeddingDim {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), r.embeddingDim)
	}
	return nil
}

// Match finds the closest identity without modifying the registry.
// Matched is false when no identity clears the confidence threshold.
func (r *Registry) Match(embedding []float32) (MatchResult, error) {
	if err := r.checkDim(embedding); err != nil {
		return MatchResult{}, err
	}
	embedding = Normalize(embedding)

	r.mu.RLock()
	defer r.mu.RUnlock()

	best, distance := r.matcher.Best(r.candidates(embedding), embedding)
	if best == nil || !r.matcher.Accepts(distance) {
		return MatchResult{Distance: distance, Confidence: Confidence(distance)}, nil
	}
	return MatchResult{
		IdentityID: best.ID,
		Distance:   distance,
		Confidence: Confidence(distance),
		Matched:    true,
	}, nil
}

// Resolve assigns the embedding to an identity: the closest existing
// one when it clears the threshold, otherwise a freshly minted unnamed
// identity seeded with this embedding as its first sample.
func (r *Registry) Resolve(embedding []float32) (MatchResult, error) {
	if err := r.checkDim(embedding); err != nil {
		return MatchResult{}, err
	}
	embedding = Normalize(embedding)

	r.mu.Lock()
	defer r.mu.Unlock()

	best, distance := r.matcher.Best(r.candidates(embedding), embedding)
	if best != nil && r.matcher.Accepts(distance) {
		sample, evicted := r.learner.Absorb(best, embedding, r.now())
		if r.index != nil {
			r.index.add(sample.ID, best.ID, embedding)
			if evicted != "" {
				r.index.remove(evicted)
			}
		}
		return MatchResult{
			IdentityID: best.ID,
			Distance:   distance,
			Confidence: Confidence(distance),
			Matched:    true,
		}, nil
	}

	now := r.now()
	id := &Identity{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	sample, _ := r.learner.Absorb(id, embedding, now)
	r.identities[id.ID] = id
	if r.index != nil {
		r.index.add(sample.ID, id.ID, embedding)
	}
	return MatchResult{
		IdentityID: id.ID,
		Distance:   distance,
		Confidence: Confidence(distance),
		Created:    true,
	}, nil
}

// candidates returns the identities worth scoring for an embedding:
// the index's nearest owners when enabled, otherwise every identity.
// Callers must hold the lock.
func (r *Registry) candidates(embedding []float32) []*Identity {
	if r.index != nil {
		ids := r.index.candidates(embedding, candidateK)
		out := make([]*Identity, 0, len(ids))
		for _, id := range ids {
			if identity, ok := r.identities[id]; ok {
				out = append(out, identity)
			}
		}
		return out
	}

	out := make([]*Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		out = append(out, identity)
	}
	return out
}

// Get returns a copy of an identity.
func (r *Registry) Get(id string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return copyIdentity(identity), nil
}

// List returns copies of all identities, newest first.
func (r *Registry) List() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		out = append(out, copyIdentity(identity))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// Rename sets an identity's display name. An empty name reverts the
// identity to unnamed.
func (r *Registry) Rename(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return ErrNotFound
	}
	identity.Name = NormalizeName(name)
	identity.UpdatedAt = r.now()
	return nil
}

// FindByName returns identities whose name matches, ignoring case and
// diacritics.
func (r *Registry) FindByName(name string) []Identity {
	folded := foldName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Identity
	for _, identity := range r.identities {
		if identity.Name != "" && foldName(identity.Name) == folded {
			out = append(out, copyIdentity(identity))
		}
	}
	return out
}

// Merge folds the source identity into the destination: samples move
// over (subject to the usual eviction bound), sample counts add up,
// and the source is deleted. A named source donates its name to an
// unnamed destination.
func (r *Registry) Merge(srcID, dstID string) error {
	if srcID == dstID {
		return ErrSelfMerge
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.identities[srcID]
	if !ok {
		return fmt.Errorf("source: %w", ErrNotFound)
	}
	dst, ok := r.identities[dstID]
	if !ok {
		return fmt.Errorf("destination: %w", ErrNotFound)
	}

	// Absorb counts the moved samples; rewind the double count after.
	moved := int64(len(src.Samples))
	for _, sample := range src.Samples {
		if r.index != nil {
			r.index.reassign(sample.ID, dst.ID)
		}
		_, evicted := r.learner.Absorb(dst, sample.Embedding, sample.AddedAt)
		if evicted != "" && r.index != nil {
			r.index.remove(evicted)
		}
	}
	dst.SampleCount += src.SampleCount - moved

	if dst.Name == "" {
		dst.Name = src.Name
	}
	dst.UpdatedAt = r.now()
	delete(r.identities, srcID)
	return nil
}

// Snapshot returns deep copies of all identities for persistence.
func (r *Registry) Snapshot() []Identity {
	return r.List()
}

// Load replaces the registry contents, rebuilding the candidate index.
// Used at startup to restore identities from storage.
func (r *Registry) Load(identities []Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identities = make(map[string]*Identity, len(identities))
	if r.index != nil {
		r.index = newSampleIndex()
	}
	for i := range identities {
		identity := copyIdentity(&identities[i])
		r.identities[identity.ID] = &identity
		if r.index != nil {
			for _, sample := range identity.Samples {
				r.index.add(sample.ID, identity.ID, sample.Embedding)
			}
		}
	}
}

func copyIdentity(src *Identity) Identity {
	out := *src
	out.Samples = make([]Sample, len(src.Samples))
	copy(out.Samples, src.Samples)
	return out
}
