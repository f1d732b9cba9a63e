package identity

import (
	"testing"
	"time"
)

func TestAbsorbGrowsSampleSet(t *testing.T) {
	l := NewLearner(5)
	id := &Identity{ID: "a"}
	now := time.Now()

	for i := 0; i < 3; i++ {
		sample, evicted := l.Absorb(id, []float32{1, 0, 0}, now.Add(time.Duration(i)*time.Second))
		if sample.ID == "" {
			t.Fatal("absorbed sample should get an ID")
		}
		if evicted != "" {
			t.Fatalf("no eviction expected below the bound, got %q", evicted)
		}
	}

	if len(id.Samples) != 3 {
		t.Errorf("sample set size = %d; want 3", len(id.Samples))
	}
	if id.SampleCount != 3 {
		t.Errorf("SampleCount = %d; want 3", id.SampleCount)
	}
}

func TestAbsorbEnforcesBound(t *testing.T) {
	l := NewLearner(3)
	id := &Identity{ID: "a"}
	now := time.Now()

	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0.8, 0.2, 0},
		{0.7, 0.3, 0},
		{0.6, 0.4, 0},
	}
	evictions := 0
	for i, v := range vectors {
		if _, evicted := l.Absorb(id, Normalize(v), now.Add(time.Duration(i)*time.Second)); evicted != "" {
			evictions++
		}
	}

	if len(id.Samples) != 3 {
		t.Errorf("sample set size = %d; want 3", len(id.Samples))
	}
	if evictions != 2 {
		t.Errorf("evictions = %d; want 2", evictions)
	}
	if id.SampleCount != 5 {
		t.Errorf("SampleCount should count every embedding ever absorbed, got %d", id.SampleCount)
	}
}

func TestEvictPicksMostRedundant(t *testing.T) {
	l := NewLearner(3)
	id := &Identity{ID: "a"}
	now := time.Now()

	// Two near-identical vectors and two spread ones; one of the
	// near-identical pair is the redundant sample.
	l.Absorb(id, Normalize([]float32{1, 0, 0}), now)
	l.Absorb(id, Normalize([]float32{0.999, 0.04, 0}), now.Add(time.Second))
	l.Absorb(id, Normalize([]float32{0, 1, 0}), now.Add(2*time.Second))
	_, evicted := l.Absorb(id, Normalize([]float32{0, 0, 1}), now.Add(3*time.Second))

	if evicted == "" {
		t.Fatal("fourth sample should trigger an eviction")
	}
	// One of the near-duplicates must be gone; the spread vectors survive.
	duplicatesLeft := 0
	for _, s := range id.Samples {
		if s.Embedding[0] > 0.9 {
			duplicatesLeft++
		}
	}
	if duplicatesLeft != 1 {
		t.Errorf("exactly one of the near-duplicate pair should survive, got %d", duplicatesLeft)
	}
}

func TestEvictTieBreaksOldest(t *testing.T) {
	l := NewLearner(2)
	id := &Identity{ID: "a"}
	now := time.Now()

	// Three identical vectors: all equally redundant, so the oldest goes.
	first, _ := l.Absorb(id, []float32{1, 0, 0}, now)
	l.Absorb(id, []float32{1, 0, 0}, now.Add(time.Second))
	_, evicted := l.Absorb(id, []float32{1, 0, 0}, now.Add(2*time.Second))

	if evicted != first.ID {
		t.Errorf("oldest sample should be evicted on a tie: got %q, want %q", evicted, first.ID)
	}
}
