package config

import (
	"math"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Matching.ConfidenceThreshold != 0.6 {
		t.Errorf("default confidence threshold = %v; want 0.6", cfg.Matching.ConfidenceThreshold)
	}
	if cfg.Matching.MaxSamplesPerIdentity != 20 {
		t.Errorf("default max samples = %d; want 20", cfg.Matching.MaxSamplesPerIdentity)
	}
	if cfg.Admission.MinQualityScore != 0.4 {
		t.Errorf("default min quality score = %v; want 0.4", cfg.Admission.MinQualityScore)
	}
	if cfg.Admission.MinFileBytes != 1024 {
		t.Errorf("default min file bytes = %d; want 1024", cfg.Admission.MinFileBytes)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("default max open conns = %d; want 25", cfg.Database.MaxOpenConns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("MATCH_MAX_SAMPLES_PER_IDENTITY", "50")
	t.Setenv("ADMISSION_MIN_IMAGE_DIMENSION", "300")
	t.Setenv("DETECTOR_URL", "http://detector:8000")
	t.Setenv("OBJECT_STORE_USE_SSL", "true")

	cfg := Load()

	if cfg.Matching.ConfidenceThreshold != 0.75 {
		t.Errorf("confidence threshold = %v; want 0.75", cfg.Matching.ConfidenceThreshold)
	}
	if cfg.Matching.MaxSamplesPerIdentity != 50 {
		t.Errorf("max samples = %d; want 50", cfg.Matching.MaxSamplesPerIdentity)
	}
	if cfg.Admission.MinImageDimension != 300 {
		t.Errorf("min image dimension = %d; want 300", cfg.Admission.MinImageDimension)
	}
	if cfg.Detector.URL != "http://detector:8000" {
		t.Errorf("detector URL = %q", cfg.Detector.URL)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Error("object store SSL should be enabled")
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("MATCH_CONFIDENCE_THRESHOLD", "not-a-number")
	t.Setenv("MATCH_MAX_SAMPLES_PER_IDENTITY", "-3")

	cfg := Load()

	if cfg.Matching.ConfidenceThreshold != 0.6 {
		t.Errorf("invalid float should fall back to default, got %v", cfg.Matching.ConfidenceThreshold)
	}
	if cfg.Matching.MaxSamplesPerIdentity != 20 {
		t.Errorf("negative int should fall back to default, got %d", cfg.Matching.MaxSamplesPerIdentity)
	}
}

func TestQualityWeightsNormalized(t *testing.T) {
	q := loadQuality()

	total := q.Weights.Resolution + q.Weights.Size + q.Weights.Sharpness
	if math.Abs(total-1.0) > 1e-9 {
		t.Errorf("quality weights should sum to 1 after normalization, got %v", total)
	}
	if q.IdealDimension <= 0 {
		t.Errorf("ideal dimension should be positive, got %d", q.IdealDimension)
	}
	if q.SharpnessReference <= 0 {
		t.Errorf("sharpness reference should be positive, got %v", q.SharpnessReference)
	}
}
