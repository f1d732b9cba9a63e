package identity

import (
	"math"
	"testing"
)

func TestMatcherScoreUsesClosestSample(t *testing.T) {
	m := NewMatcher(0.6)
	id := &Identity{
		Samples: []Sample{
			{Embedding: []float32{0, 1, 0}},
			{Embedding: []float32{1, 0, 0}},
			{Embedding: []float32{0, 0, 1}},
		},
	}

	if got := m.Score(id, []float32{1, 0, 0}); math.Abs(got) > 1e-9 {
		t.Errorf("score should be the closest sample's distance, got %v", got)
	}
}

func TestMatcherScoreEmptyIdentity(t *testing.T) {
	m := NewMatcher(0.6)
	if got := m.Score(&Identity{}, []float32{1, 0, 0}); got != 2.0 {
		t.Errorf("identity without samples should score maximum distance, got %v", got)
	}
}

func TestMatcherAccepts(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		distance  float64
		expected  bool
	}{
		{"well within", 0.6, 0.1, true},
		{"exactly at threshold", 0.6, 0.4, true},
		{"just beyond", 0.6, 0.41, false},
		{"orthogonal", 0.6, 1.0, false},
		{"strict threshold", 0.95, 0.1, false},
		{"lenient threshold", 0.1, 0.85, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMatcher(tc.threshold)
			if got := m.Accepts(tc.distance); got != tc.expected {
				t.Errorf("Accepts(%v) with threshold %v = %v; want %v",
					tc.distance, tc.threshold, got, tc.expected)
			}
		})
	}
}

func TestMatcherBest(t *testing.T) {
	m := NewMatcher(0.6)
	near := &Identity{ID: "near", Samples: []Sample{{Embedding: Normalize([]float32{0.95, 0.1, 0})}}}
	far := &Identity{ID: "far", Samples: []Sample{{Embedding: []float32{0, 1, 0}}}}

	best, distance := m.Best([]*Identity{far, near}, []float32{1, 0, 0})
	if best == nil || best.ID != "near" {
		t.Fatalf("Best should pick the closest identity, got %+v", best)
	}
	if distance >= 0.1 {
		t.Errorf("distance to near identity should be small, got %v", distance)
	}
}

func TestMatcherBestNoCandidates(t *testing.T) {
	m := NewMatcher(0.6)
	best, distance := m.Best(nil, []float32{1, 0, 0})
	if best != nil {
		t.Errorf("Best with no candidates should return nil, got %+v", best)
	}
	if distance != 2.0 {
		t.Errorf("distance should be maximum, got %v", distance)
	}
}
