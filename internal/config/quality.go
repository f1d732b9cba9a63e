package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// loadQuality parses the embedded quality.yaml and renormalizes the
// weights to sum to 1. The file is embedded at build time, so a parse
// failure is a programming error and panics.
func loadQuality() QualityConfig {
	var q QualityConfig
	if err := yaml.Unmarshal(qualityYAML, &q); err != nil {
		panic(fmt.Sprintf("could not parse embedded quality.yaml: %v", err))
	}

	q.Weights.Resolution = envFloat("QUALITY_WEIGHT_RESOLUTION", q.Weights.Resolution)
	q.Weights.Size = envFloat("QUALITY_WEIGHT_SIZE", q.Weights.Size)
	q.Weights.Sharpness = envFloat("QUALITY_WEIGHT_SHARPNESS", q.Weights.Sharpness)
	q.IdealDimension = envInt("QUALITY_IDEAL_DIMENSION", q.IdealDimension)
	q.SharpnessReference = envFloat("QUALITY_SHARPNESS_REFERENCE", q.SharpnessReference)

	total := q.Weights.Resolution + q.Weights.Size + q.Weights.Sharpness
	if total <= 0 {
		panic("quality weights must sum to a positive value")
	}
	q.Weights.Resolution /= total
	q.Weights.Size /= total
	q.Weights.Sharpness /= total

	return q
}
