// Package storage defines the persistence contracts for images, faces
// and identities, with PostgreSQL and in-memory implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/openscrape/facedex/internal/identity"
)

var ErrNotFound = errors.New("record not found")

// ImageRecord is one accepted image.
type ImageRecord struct {
	ID           int64     `json:"id"`
	SourceURL    string    `json:"source_url"`
	ContentHash  string    `json:"content_hash"`
	PHash        string    `json:"phash"`
	DHash        string    `json:"dhash"`
	Format       string    `json:"format"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FileBytes    int64     `json:"file_bytes"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// FaceRecord is one detected face, assigned to an identity.
type FaceRecord struct {
	ID         int64     `json:"id"`
	ImageID    int64     `json:"image_id"`
	FaceIndex  int       `json:"face_index"`
	IdentityID string    `json:"identity_id"`
	Embedding  []float32 `json:"embedding"`
	BBox       []float64 `json:"bbox"`
	DetScore   float64   `json:"det_score"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarizes the stored corpus.
type Stats struct {
	Images     int `json:"images"`
	Faces      int `json:"faces"`
	Identities int `json:"identities"`
	Named      int `json:"named_identities"`
}

// Store persists the pipeline's output. Implementations must be safe
// for concurrent use by the worker pool.
type Store interface {
	// SaveImage inserts an accepted image and fills in its ID.
	SaveImage(ctx context.Context, img *ImageRecord) error
	// ImageByHash looks an image up by content hash. Returns ErrNotFound.
	ImageByHash(ctx context.Context, hash string) (*ImageRecord, error)
	// AcceptedHashes returns all stored content hashes, used to seed
	// the admission gate at startup.
	AcceptedHashes(ctx context.Context) ([]string, error)

	// SaveFace inserts a face and fills in its ID.
	SaveFace(ctx context.Context, face *FaceRecord) error
	// FacesByIdentity returns all faces assigned to an identity.
	FacesByIdentity(ctx context.Context, identityID string) ([]FaceRecord, error)
	// ReassignFaces moves faces from one identity to another, used
	// when identities are merged. Returns the number of faces moved.
	ReassignFaces(ctx context.Context, fromID, toID string) (int64, error)

	// SaveIdentities replaces the persisted identity snapshot.
	SaveIdentities(ctx context.Context, identities []identity.Identity) error
	// LoadIdentities returns the persisted identity snapshot.
	LoadIdentities(ctx context.Context) ([]identity.Identity, error)

	Stats(ctx context.Context) (*Stats, error)
}
