package model

import "time"

// CorpusPrecedent is a seeded precedent in the similarity index, stored with
// its embedding so searches can rank it without recomputing vectors.
type CorpusPrecedent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Relevance   string    `json:"relevance"`
	Source      string    `json:"source,omitempty"`
	Embedding   []float32 `json:"embedding"`
	CreatedAt   time.Time `json:"created_at"`
}
