// Package vectorstore stores knowledge items as embeddings in Postgres via
// pgvector, for nearest-neighbor retrieval through services.KnowledgeService
// (the knowledge search API).
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Hit is one search result: the stored payload plus its similarity score.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// Store is a pgvector-backed collection of (id, vector, payload) rows over
// the shared Postgres connection. One Store instance owns one collection
// (table).
type Store struct {
	db         *sql.DB
	collection string
	dim        int
}

// NewStore builds a Store bound to collection, using the database/sql pool
// the rest of the system already holds open (same pattern as
// pkg/database.CreateGINIndexes running raw SQL over the ent driver's
// underlying *sql.DB).
func NewStore(db *sql.DB, collection string) *Store {
	return &Store{db: db, collection: collection}
}

// EnsureCollection creates the table backing this collection if absent,
// with an ivfflat cosine-distance index. metric is accepted for interface
// symmetry with the contract; only cosine is implemented, matching the
// single 384-dim knowledge collection this system persists.
func (s *Store) EnsureCollection(ctx context.Context, dim int, metric string) error {
	if metric != "" && metric != "cosine" {
		return fmt.Errorf("vectorstore: unsupported metric %q", metric)
	}
	s.dim = dim

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("ensure pgvector extension: %w", err)
	}

	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}'::jsonb
	)`, s.collection, dim)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("ensure collection table %s: %w", s.collection, err)
	}

	createIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`, s.collection, s.collection)
	if _, err := s.db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("ensure collection index %s: %w", s.collection, err)
	}

	return nil
}

// Upsert inserts or replaces the vector and payload stored at id.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", id, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, s.collection)
	_, err = s.db.ExecContext(ctx, query, id, pgvector.NewVector(vector), raw)
	if err != nil {
		return fmt.Errorf("upsert %s into %s: %w", id, s.collection, err)
	}
	return nil
}

// Search returns up to limit hits with cosine similarity >= minScore,
// ordered by similarity descending.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]Hit, error) {
	query := fmt.Sprintf(`SELECT id, payload, 1 - (embedding <=> $1) AS score FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, s.collection)

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			id      string
			rawPay  []byte
			score   float64
		)
		if err := rows.Scan(&id, &rawPay, &score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(rawPay, &payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", id, err)
		}
		hits = append(hits, Hit{ID: id, Score: score, Payload: payload})
	}
	return hits, rows.Err()
}

// ScrollByPayloadID returns the row whose payload.id field equals
// payloadID, or ok=false if none matches.
func (s *Store) ScrollByPayloadID(ctx context.Context, payloadID string) (*Hit, bool, error) {
	query := fmt.Sprintf(`SELECT id, payload FROM %s WHERE payload->>'id' = $1 LIMIT 1`, s.collection)
	row := s.db.QueryRowContext(ctx, query, payloadID)

	var id string
	var rawPay []byte
	if err := row.Scan(&id, &rawPay); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scroll by payload id %s: %w", payloadID, err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawPay, &payload); err != nil {
		return nil, false, fmt.Errorf("decode payload for %s: %w", id, err)
	}
	return &Hit{ID: id, Payload: payload}, true, nil
}

// DeleteByPayloadID removes the row whose payload.id field equals
// payloadID.
func (s *Store) DeleteByPayloadID(ctx context.Context, payloadID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE payload->>'id' = $1`, s.collection)
	if _, err := s.db.ExecContext(ctx, query, payloadID); err != nil {
		return fmt.Errorf("delete by payload id %s: %w", payloadID, err)
	}
	return nil
}
