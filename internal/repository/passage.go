package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PassageRepository stores passages in Postgres with pgvector.
type PassageRepository struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPassageRepository creates a repository whose vectors have the given
// number of dimensions.
func NewPassageRepository(pool *pgxpool.Pool, dimensions int) *PassageRepository {
	return &PassageRepository{pool: pool, dimensions: dimensions}
}

// Ping checks database connectivity.
func (r *PassageRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Add inserts all passages in a single transaction.
func (r *PassageRepository) Add(ctx context.Context, passages []domain.NewPassage) error {
	if len(passages) == 0 {
		return nil
	}
	for _, p := range passages {
		if err := domain.ValidateNewPassage(p, r.dimensions); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewStoreError("failed to begin transaction", err)
	}

	if err := insertPassages(ctx, tx, passages); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("failed to commit passages", err)
	}
	return nil
}

func insertPassages(ctx context.Context, db dbtx, passages []domain.NewPassage) error {
	batch := &pgx.Batch{}
	for _, p := range passages {
		metadata, err := json.Marshal(p.Metadata)
		if err != nil {
			return domain.NewStoreError("failed to encode passage metadata", err)
		}
		batch.Queue(
			`INSERT INTO passages (text, embedding, metadata) VALUES ($1, $2, $3)`,
			p.Text,
			pgvector.NewVector(p.Vector),
			metadata,
		)
	}

	results := db.SendBatch(ctx, batch)
	for range passages {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return domain.NewStoreError("failed to insert passage", err)
		}
	}
	if err := results.Close(); err != nil {
		return domain.NewStoreError("failed to insert passages", err)
	}
	return nil
}

// Nearest returns the topK passages closest to query by cosine distance.
func (r *PassageRepository) Nearest(ctx context.Context, query []float32, topK int) ([]domain.ScoredPassage, error) {
	if err := checkQuery(query, topK, r.dimensions); err != nil {
		return nil, err
	}

	// pgvector yields a NaN distance when either vector has zero norm, and
	// Postgres sorts NaN after every number. Treat such pairs as orthogonal so
	// they rank like they do in the other stores.
	rows, err := r.pool.Query(ctx,
		`SELECT id, text, metadata, 1 - distance AS score
		 FROM (
		   SELECT id, text, metadata,
		          COALESCE(NULLIF(embedding <=> $1, 'NaN'::float8), 1) AS distance
		   FROM passages
		 ) ranked
		 ORDER BY distance, id
		 LIMIT $2`,
		pgvector.NewVector(query), topK,
	)
	if err != nil {
		return nil, domain.NewStoreError("failed to query nearest passages", err)
	}
	defer rows.Close()

	results := make([]domain.ScoredPassage, 0, topK)
	for rows.Next() {
		var p domain.ScoredPassage
		var metadata []byte
		if err := rows.Scan(&p.ID, &p.Text, &metadata, &p.Score); err != nil {
			return nil, domain.NewStoreError("failed to scan passage", err)
		}
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, domain.NewStoreError("failed to decode passage metadata", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to read passages", err)
	}
	return results, nil
}

// Count returns the number of stored passages.
func (r *PassageRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count); err != nil {
		return 0, domain.NewStoreError("failed to count passages", err)
	}
	return count, nil
}

// ListDocuments returns every document name with its passage count.
func (r *PassageRepository) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT metadata->>'document_name' AS document_name, COUNT(*)
		 FROM passages
		 GROUP BY document_name
		 ORDER BY document_name`,
	)
	if err != nil {
		return nil, domain.NewStoreError("failed to list documents", err)
	}
	defer rows.Close()

	docs := make([]domain.DocumentSummary, 0)
	for rows.Next() {
		var d domain.DocumentSummary
		var name *string
		if err := rows.Scan(&name, &d.Passages); err != nil {
			return nil, domain.NewStoreError("failed to scan document", err)
		}
		if name != nil {
			d.DocumentName = *name
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to read documents", err)
	}
	return docs, nil
}

// CheckDimensions verifies that stored vectors match the configured dimension.
// An empty table always passes.
func (r *PassageRepository) CheckDimensions(ctx context.Context) error {
	var dims *int
	err := r.pool.QueryRow(ctx,
		`SELECT vector_dims(embedding) FROM passages WHERE vector_dims(embedding) <> $1 LIMIT 1`,
		r.dimensions,
	).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return domain.NewStoreError("failed to check vector dimensions", err)
	}
	found := 0
	if dims != nil {
		found = *dims
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeStore, domain.ErrDimensionMismatch.Message,
		fmt.Errorf("store holds %d-dimensional vectors, configured for %d", found, r.dimensions))
}
