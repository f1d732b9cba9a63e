package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/openscrape/facedex/internal/storage"
)

// SaveFace inserts a detected face and fills in its generated ID.
func (r *Repository) SaveFace(ctx context.Context, face *storage.FaceRecord) error {
	query := `
		INSERT INTO faces (image_id, face_index, identity_id, embedding,
		                   bbox, det_score, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		face.ImageID, face.FaceIndex, face.IdentityID,
		pgvector.NewVector(face.Embedding), pq.Array(face.BBox),
		face.DetScore, face.Confidence,
	).Scan(&face.ID, &face.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

// FacesByIdentity returns all faces assigned to an identity, oldest first.
func (r *Repository) FacesByIdentity(ctx context.Context, identityID string) ([]storage.FaceRecord, error) {
	query := `
		SELECT id, image_id, face_index, identity_id, embedding,
		       bbox, det_score, confidence, created_at
		FROM faces
		WHERE identity_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("query faces by identity: %w", err)
	}
	defer rows.Close()

	var faces []storage.FaceRecord
	for rows.Next() {
		var face storage.FaceRecord
		var embedding pgvector.Vector
		err := rows.Scan(
			&face.ID, &face.ImageID, &face.FaceIndex, &face.IdentityID, &embedding,
			pq.Array(&face.BBox), &face.DetScore, &face.Confidence, &face.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		face.Embedding = embedding.Slice()
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// ReassignFaces moves all faces from one identity to another.
func (r *Repository) ReassignFaces(ctx context.Context, fromID, toID string) (int64, error) {
	result, err := r.pool.Exec(ctx,
		"UPDATE faces SET identity_id = $2 WHERE identity_id = $1", fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("reassign faces: %w", err)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassigned rows: %w", err)
	}
	return moved, nil
}
