// Package retrieval finds policy documents relevant to a query via
// vector similarity search over pgvector.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/embedding"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"

	"github.com/pgvector/pgvector-go"
)

// Content longer than this is cut before it reaches the drafting step.
const maxExcerptLen = 500

// PolicyStore performs nearest-neighbor search over stored policy
// documents. Implemented by the storage layer.
type PolicyStore interface {
	// NearestPolicies returns up to limit documents ordered by ascending
	// cosine distance to the query vector. An empty category disables
	// the category pre-filter.
	NearestPolicies(ctx context.Context, query pgvector.Vector, limit int, category string) ([]model.PolicyDocument, error)

	// PoliciesByCategory returns documents in a category without vector
	// search, in insertion order.
	PoliciesByCategory(ctx context.Context, category string, limit int) ([]model.PolicyDocument, error)
}

// Service embeds queries and retrieves matching policy excerpts.
type Service struct {
	store    PolicyStore
	provider embedding.Provider
	log      *slog.Logger
}

// NewService creates a retrieval service.
func NewService(store PolicyStore, provider embedding.Provider, log *slog.Logger) *Service {
	return &Service{store: store, provider: provider, log: log}
}

// Retrieve returns the topK policy excerpts most similar to the query,
// optionally restricted to one category. Excerpt content is truncated
// to 500 characters.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, category string) ([]model.PolicyExcerpt, error) {
	queryVec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	docs, err := s.store.NearestPolicies(ctx, queryVec, topK, category)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search policies: %w", err)
	}

	s.log.InfoContext(ctx, "retrieved policies",
		"count", len(docs), "top_k", topK, "category", orAll(category))
	return toExcerpts(docs), nil
}

// ByCategory returns excerpts from one category without vector search.
func (s *Service) ByCategory(ctx context.Context, category string, limit int) ([]model.PolicyExcerpt, error) {
	docs, err := s.store.PoliciesByCategory(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list category %q: %w", category, err)
	}
	return toExcerpts(docs), nil
}

func toExcerpts(docs []model.PolicyDocument) []model.PolicyExcerpt {
	excerpts := make([]model.PolicyExcerpt, len(docs))
	for i, doc := range docs {
		content := doc.Content
		if len(content) > maxExcerptLen {
			content = content[:maxExcerptLen]
		}
		excerpts[i] = model.PolicyExcerpt{
			ID:       doc.ID,
			Title:    doc.Title,
			Content:  content,
			Category: doc.Category,
		}
	}
	return excerpts
}

func orAll(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
