package identity

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2},
		{"scaled identical", []float32{2, 0, 0}, []float32{5, 0, 0}, 0},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 2},
		{"empty", nil, nil, 2},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-6 {
				t.Errorf("CosineDistance = %v; want %v", got, tc.expected)
			}
		})
	}
}

func TestCosineDistanceSymmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.5}
	b := []float32{-0.1, 0.4, 0.9, 0.2}

	if d1, d2 := CosineDistance(a, b), CosineDistance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance should be symmetric: %v vs %v", d1, d2)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("normalized vector should have unit length, got norm^2 = %v", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v; want [0.6 0.8]", v)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero vector should stay zero, got %v", v)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"perfect", 0, 1},
		{"close", 0.1, 0.9},
		{"orthogonal", 1, 0},
		{"beyond one clamps", 1.7, 0},
		{"negative clamps", -0.2, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Confidence(tc.distance); math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Confidence(%v) = %v; want %v", tc.distance, got, tc.expected)
			}
		})
	}
}
