package config

import (
	_ "embed"
	"os"
	"strconv"
)

//go:embed quality.yaml
var qualityYAML []byte

type Config struct {
	Matching    MatchingConfig
	Admission   AdmissionConfig
	Detector    DetectorConfig
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Quality     QualityConfig
}

type MatchingConfig struct {
	// ConfidenceThreshold is the minimum confidence (1 - cosine distance)
	// required to assign a face to an existing identity. The single most
	// consequential tunable: lower values merge distinct people, higher
	// values fragment one person into near-duplicate identities.
	ConfidenceThreshold float64
	// MaxSamplesPerIdentity bounds the representative sample set per identity.
	MaxSamplesPerIdentity int
	// EmbeddingDim is the expected detector embedding dimension.
	EmbeddingDim int
	// HNSWIndex enables the in-memory HNSW candidate index for matching.
	HNSWIndex bool
}

type AdmissionConfig struct {
	MinQualityScore   float64 // images scoring below this are rejected
	MinImageDimension int     // hard floor in pixels, both axes
	MinFileBytes      int64   // smaller files are treated as corrupt
	MaxFileBytes      int64   // larger files are rejected
}

type DetectorConfig struct {
	URL string // face embedding server, defaults to http://localhost:8000
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // default 25
	MaxIdleConns int    // default 5
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

// QualityConfig holds the quality-score weights, loaded from the embedded
// quality.yaml and overridable per deployment via QUALITY_* env vars.
type QualityConfig struct {
	Weights struct {
		Resolution float64 `yaml:"resolution"`
		Size       float64 `yaml:"size"`
		Sharpness  float64 `yaml:"sharpness"`
	} `yaml:"weights"`
	IdealDimension     int     `yaml:"ideal_dimension"`
	SharpnessReference float64 `yaml:"sharpness_reference"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

func Load() *Config {
	return &Config{
		Matching: MatchingConfig{
			ConfidenceThreshold:   envFloat("MATCH_CONFIDENCE_THRESHOLD", 0.6),
			MaxSamplesPerIdentity: envInt("MATCH_MAX_SAMPLES_PER_IDENTITY", 20),
			EmbeddingDim:          envInt("MATCH_EMBEDDING_DIM", 512),
			HNSWIndex:             envBool("MATCH_HNSW_INDEX", false),
		},
		Admission: AdmissionConfig{
			MinQualityScore:   envFloat("ADMISSION_MIN_QUALITY_SCORE", 0.4),
			MinImageDimension: envInt("ADMISSION_MIN_IMAGE_DIMENSION", 200),
			MinFileBytes:      int64(envInt("ADMISSION_MIN_FILE_BYTES", 1024)),
			MaxFileBytes:      int64(envInt("ADMISSION_MAX_FILE_BYTES", 25*1024*1024)),
		},
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
			AccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
			Bucket:    os.Getenv("OBJECT_STORE_BUCKET"),
			UseSSL:    envBool("OBJECT_STORE_USE_SSL", false),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Quality: loadQuality(),
	}
}
