// Package store persists documents, analyses and the precedent corpus. The
// Postgres store is the source of truth; the SQLite mirror holds a
// best-effort copy of status and progress for fast polling.
package store

import (
	"context"

	"github.com/sells-group/legal-analyzer/internal/model"
)

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Status     model.AnalysisStatus `json:"status,omitempty"`
	DocumentID string               `json:"document_id,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Offset     int                  `json:"offset,omitempty"`
}

// Store defines the durable persistence interface for the analysis workflow.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	SetDocumentText(ctx context.Context, documentID, text string) error
	SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus) error

	// Analyses
	CreateAnalysis(ctx context.Context, documentID, documentType string) (*model.Analysis, error)
	GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)
	UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus, errMsg string) error
	UpdateAnalysisProgress(ctx context.Context, analysisID string, progress float64) error
	CompleteAnalysis(ctx context.Context, analysisID string, results *model.AnalysisResults) error
	ResetAnalysis(ctx context.Context, analysisID string) error

	// Precedent corpus
	UpsertPrecedents(ctx context.Context, precedents []model.CorpusPrecedent) (int64, error)
	ListPrecedents(ctx context.Context) ([]model.CorpusPrecedent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
