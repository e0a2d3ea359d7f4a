package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS passages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    text        TEXT    NOT NULL,
    embedding   BLOB    NOT NULL,
    metadata    TEXT    NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passages_document_name
    ON passages (json_extract(metadata, '$.document_name'));
`

// SQLitePassageRepository stores passages in a single SQLite file. Vectors
// are kept as little-endian float32 blobs and ranked in Go.
type SQLitePassageRepository struct {
	db         *sql.DB
	dimensions int
}

// OpenSQLitePassageRepository opens (or creates) the database at path and
// applies the schema. Use ":memory:" in tests.
func OpenSQLitePassageRepository(path string, dimensions int) (*SQLitePassageRepository, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &SQLitePassageRepository{db: db, dimensions: dimensions}, nil
}

// Close releases the database handle.
func (r *SQLitePassageRepository) Close() error {
	return r.db.Close()
}

func (r *SQLitePassageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Add inserts all passages in one transaction.
func (r *SQLitePassageRepository) Add(ctx context.Context, passages []domain.NewPassage) error {
	if len(passages) == 0 {
		return nil
	}
	for _, p := range passages {
		if err := domain.ValidateNewPassage(p, r.dimensions); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (text, embedding, metadata, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return domain.NewStoreError("failed to prepare insert", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range passages {
		metadata, err := json.Marshal(p.Metadata)
		if err != nil {
			return domain.NewStoreError("failed to encode passage metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, p.Text, encodeVector(p.Vector), string(metadata), now); err != nil {
			return domain.NewStoreError("failed to insert passage", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("failed to commit passages", err)
	}
	return nil
}

// Nearest loads every passage and ranks them by cosine similarity.
func (r *SQLitePassageRepository) Nearest(ctx context.Context, query []float32, topK int) ([]domain.ScoredPassage, error) {
	if err := checkQuery(query, topK, r.dimensions); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, text, embedding, metadata, created_at FROM passages`)
	if err != nil {
		return nil, domain.NewStoreError("failed to query passages", err)
	}
	defer rows.Close()

	passages, err := scanSQLitePassages(rows)
	if err != nil {
		return nil, err
	}
	return rankPassages(passages, query, topK), nil
}

func (r *SQLitePassageRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count); err != nil {
		return 0, domain.NewStoreError("failed to count passages", err)
	}
	return count, nil
}

func (r *SQLitePassageRepository) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT json_extract(metadata, '$.document_name') AS document_name, COUNT(*)
		 FROM passages
		 GROUP BY document_name
		 ORDER BY document_name`)
	if err != nil {
		return nil, domain.NewStoreError("failed to list documents", err)
	}
	defer rows.Close()

	docs := make([]domain.DocumentSummary, 0)
	for rows.Next() {
		var d domain.DocumentSummary
		var name sql.NullString
		if err := rows.Scan(&name, &d.Passages); err != nil {
			return nil, domain.NewStoreError("failed to scan document", err)
		}
		d.DocumentName = name.String
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to read documents", err)
	}
	return docs, nil
}

func scanSQLitePassages(rows *sql.Rows) ([]domain.Passage, error) {
	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		var blob []byte
		var metadata string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Text, &blob, &metadata, &createdAt); err != nil {
			return nil, domain.NewStoreError("failed to scan passage", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, domain.NewStoreError("failed to decode passage vector", err)
		}
		p.Vector = vec
		if err := json.Unmarshal([]byte(metadata), &p.Metadata); err != nil {
			return nil, domain.NewStoreError("failed to decode passage metadata", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to read passages", err)
	}
	return passages, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
