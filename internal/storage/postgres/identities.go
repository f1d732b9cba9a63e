package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/openscrape/facedex/internal/identity"
)

// SaveIdentities replaces the persisted identity snapshot in one
// transaction. The registry is the source of truth at runtime; this
// writes its state down so a restart can pick up where it left off.
func (r *Repository) SaveIdentities(ctx context.Context, identities []identity.Identity) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM identities"); err != nil {
		return fmt.Errorf("clear identities: %w", err)
	}

	identityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO identities (id, name, sample_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare identity insert: %w", err)
	}
	defer identityStmt.Close()

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO identity_samples (id, identity_id, embedding, added_at)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	for i := range identities {
		id := &identities[i]
		if _, err := identityStmt.ExecContext(ctx,
			id.ID, id.Name, id.SampleCount, id.CreatedAt, id.UpdatedAt); err != nil {
			return fmt.Errorf("insert identity %s: %w", id.ID, err)
		}
		for _, sample := range id.Samples {
			if _, err := sampleStmt.ExecContext(ctx,
				sample.ID, id.ID, pgvector.NewVector(sample.Embedding), sample.AddedAt); err != nil {
				return fmt.Errorf("insert sample %s: %w", sample.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity snapshot: %w", err)
	}
	return nil
}

// LoadIdentities returns the persisted identity snapshot with samples.
func (r *Repository) LoadIdentities(ctx context.Context) ([]identity.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sample_count, created_at, updated_at
		FROM identities
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []identity.Identity
	byID := make(map[string]int)
	for rows.Next() {
		var id identity.Identity
		if err := rows.Scan(&id.ID, &id.Name, &id.SampleCount, &id.CreatedAt, &id.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		byID[id.ID] = len(identities)
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	sampleRows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, embedding, added_at
		FROM identity_samples
		ORDER BY added_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query identity samples: %w", err)
	}
	defer sampleRows.Close()

	for sampleRows.Next() {
		var sample identity.Sample
		var identityID string
		var embedding pgvector.Vector
		if err := sampleRows.Scan(&sample.ID, &identityID, &embedding, &sample.AddedAt); err != nil {
			return nil, fmt.Errorf("scan identity sample: %w", err)
		}
		sample.Embedding = embedding.Slice()

		idx, ok := byID[identityID]
		if !ok {
			continue // orphaned sample, skip
		}
		identities[idx].Samples = append(identities[idx].Samples, sample)
	}
	if err := sampleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity samples: %w", err)
	}

	return identities, nil
}
