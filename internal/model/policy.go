package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PolicyDocument is an internal policy text with its vector embedding,
// stored for nearest-neighbor retrieval.
type PolicyDocument struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Category  string          `json:"category"`
	Embedding pgvector.Vector `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// PolicyExcerpt is the retrieval-facing view of a policy document:
// the content is truncated before it is handed to the drafting step.
type PolicyExcerpt struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Category string    `json:"category"`
}
