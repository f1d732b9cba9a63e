package identity

import "math"

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); invalid
// input (mismatched lengths, zero vectors) returns the maximum.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Normalize returns a unit-length copy of the vector. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Confidence converts a cosine distance into a [0, 1] match confidence.
func Confidence(distance float64) float64 {
	if distance > 1 {
		distance = 1
	}
	if distance < 0 {
		distance = 0
	}
	return 1 - distance
}
