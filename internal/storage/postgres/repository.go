package postgres

import (
	"context"
	"fmt"

	"github.com/openscrape/facedex/internal/storage"
)

// Repository implements storage.Store on top of a PostgreSQL pool.
type Repository struct {
	pool *Pool
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Stats summarizes the stored corpus in one round trip.
func (r *Repository) Stats(ctx context.Context) (*storage.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM images),
			(SELECT COUNT(*) FROM faces),
			(SELECT COUNT(*) FROM identities),
			(SELECT COUNT(*) FROM identities WHERE name <> '')
	`

	var s storage.Stats
	err := r.pool.QueryRow(ctx, query).Scan(&s.Images, &s.Faces, &s.Identities, &s.Named)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &s, nil
}
