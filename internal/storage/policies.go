package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// InsertPolicyDocument stores a policy document with its embedding.
func (db *DB) InsertPolicyDocument(ctx context.Context, doc model.PolicyDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO policy_documents (id, title, content, category, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.Title, doc.Content, doc.Category, doc.Embedding, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert policy document: %w", err)
	}
	return nil
}

// NearestPolicies returns up to limit documents ordered by ascending
// cosine distance to the query vector. An empty category disables the
// category pre-filter.
func (db *DB) NearestPolicies(ctx context.Context, query pgvector.Vector, limit int, category string) ([]model.PolicyDocument, error) {
	if limit <= 0 {
		limit = 3
	}

	sql := `SELECT id, title, content, category, embedding, created_at
	        FROM policy_documents`
	args := []any{query, limit}
	if category != "" {
		sql += ` WHERE category = $3`
		args = append(args, category)
	}
	sql += ` ORDER BY embedding <=> $1 LIMIT $2`

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: nearest policies: %w", err)
	}
	defer rows.Close()

	return scanPolicies(rows)
}

// PoliciesByCategory returns documents in a category without vector
// search, oldest first.
func (db *DB) PoliciesByCategory(ctx context.Context, category string, limit int) ([]model.PolicyDocument, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, content, category, embedding, created_at
		 FROM policy_documents WHERE category = $1
		 ORDER BY created_at LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: policies by category: %w", err)
	}
	defer rows.Close()

	return scanPolicies(rows)
}

// CountPolicyDocuments returns the number of stored policy documents.
func (db *DB) CountPolicyDocuments(ctx context.Context) (int, error) {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM policy_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count policy documents: %w", err)
	}
	return count, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPolicies(rows pgxRows) ([]model.PolicyDocument, error) {
	var docs []model.PolicyDocument
	for rows.Next() {
		var doc model.PolicyDocument
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Content, &doc.Category, &doc.Embedding, &doc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan policy document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
