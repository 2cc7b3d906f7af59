package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"meatledger/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL PRIMARY KEY,
	collection TEXT        NOT NULL,
	doc_id     TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_doc_id_idx ON documents (collection, doc_id);
`

// Store keeps every collection in one JSONB table. doc_id is deliberately not
// unique so that imported data with repeated ids survives and can be audited.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Document, error) {
	return listDocuments(ctx, s.db, collection)
}

// Snapshot reads several collections inside one read-only repeatable-read
// transaction so the result reflects a single point in time.
func (s *Store) Snapshot(ctx context.Context, collections ...string) (map[string][]store.Document, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result := make(map[string][]store.Document, len(collections))
	for _, collection := range collections {
		docs, err := listDocuments(ctx, tx, collection)
		if err != nil {
			return nil, err
		}
		result[collection] = docs
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listDocuments(ctx context.Context, q queryer, collection string) ([]store.Document, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT doc_id, data
		FROM documents
		WHERE collection = $1
		ORDER BY seq
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0, 64)
	for rows.Next() {
		var doc store.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, err
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) Get(ctx context.Context, collection string, id string) (*store.Document, error) {
	var doc store.Document
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, data
		FROM documents
		WHERE collection = $1 AND doc_id = $2
		ORDER BY seq
		LIMIT 1
	`, collection, id).Scan(&doc.ID, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	doc.Data = data
	return &doc, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc store.Document) error {
	if doc.ID == "" || !json.Valid(doc.Data) {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, data, created_at, updated_at)
		SELECT $1, $2, $3::jsonb, now(), now()
		WHERE NOT EXISTS (
			SELECT 1 FROM documents WHERE collection = $1 AND doc_id = $2
		)
	`, collection, doc.ID, string(doc.Data))
	if err != nil {
		if isInvalidJSON(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: duplicate id %s", store.ErrInvalidRecord, doc.ID)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection string, id string, patch map[string]any) (*store.Document, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}

	var doc store.Document
	var data []byte
	err = s.db.QueryRowContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE seq = (
			SELECT seq FROM documents
			WHERE collection = $1 AND doc_id = $2
			ORDER BY seq
			LIMIT 1
		)
		RETURNING doc_id, data
	`, collection, id, string(payload)).Scan(&doc.ID, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	doc.Data = data
	return &doc, nil
}

func (s *Store) Remove(ctx context.Context, collection string, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE seq = (
			SELECT seq FROM documents
			WHERE collection = $1 AND doc_id = $2
			ORDER BY seq
			LIMIT 1
		)
	`, collection, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func isInvalidJSON(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}
