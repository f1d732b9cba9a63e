package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openscrape/facedex/internal/storage"
)

// SaveImage inserts an accepted image and fills in its generated ID.
func (r *Repository) SaveImage(ctx context.Context, img *storage.ImageRecord) error {
	query := `
		INSERT INTO images (source_url, content_hash, phash, dhash, format,
		                    width, height, file_bytes, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		img.SourceURL, img.ContentHash, img.PHash, img.DHash, img.Format,
		img.Width, img.Height, img.FileBytes, img.QualityScore,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// ImageByHash looks an image up by its content hash.
func (r *Repository) ImageByHash(ctx context.Context, hash string) (*storage.ImageRecord, error) {
	query := `
		SELECT id, source_url, content_hash, phash, dhash, format,
		       width, height, file_bytes, quality_score, created_at
		FROM images
		WHERE content_hash = $1
	`

	var img storage.ImageRecord
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&img.ID, &img.SourceURL, &img.ContentHash, &img.PHash, &img.DHash, &img.Format,
		&img.Width, &img.Height, &img.FileBytes, &img.QualityScore, &img.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query image by hash: %w", err)
	}
	return &img, nil
}

// AcceptedHashes returns the content hashes of all stored images.
func (r *Repository) AcceptedHashes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT content_hash FROM images")
	if err != nil {
		return nil, fmt.Errorf("query accepted hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan content hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content hashes: %w", err)
	}
	return hashes, nil
}
