// Package document manages stored documents and their extracted text.
package document

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/extract"
	"github.com/sells-group/legal-analyzer/internal/model"
)

// Store is the slice of the durable store the document service uses.
type Store interface {
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	SetDocumentText(ctx context.Context, documentID, text string) error
	SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus) error
}

// Service registers documents and serves their extracted text.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a document service over the durable store.
func NewService(st Store) *Service {
	return &Service{
		store:  st,
		logger: zap.L().With(zap.String("component", "document")),
	}
}

// Register records a document for a file already on disk.
func (s *Service) Register(ctx context.Context, path, documentType string) (*model.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, eris.Wrapf(err, "document: resolve %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, eris.Wrapf(err, "document: stat %s", abs)
	}

	doc, err := s.store.CreateDocument(ctx, model.Document{
		Filename:     filepath.Base(abs),
		ContentType:  mime.TypeByExtension(filepath.Ext(abs)),
		Size:         info.Size(),
		FilePath:     abs,
		DocumentType: documentType,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document registered",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int64("size", doc.Size),
	)
	return doc, nil
}

// ExtractText returns the document's text. Previously extracted text is
// served from the store; otherwise the file is read, extracted and the text
// persisted for reuse.
func (s *Service) ExtractText(ctx context.Context, documentID string) (string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return "", eris.Wrapf(err, "document: load %s", documentID)
	}

	if doc.TextContent != "" {
		s.logger.Debug("serving cached text", zap.String("document_id", documentID))
		return doc.TextContent, nil
	}

	text, err := extract.FromFile(doc.FilePath)
	if err != nil {
		return "", eris.Wrapf(err, "document: extract %s", documentID)
	}

	if err := s.store.SetDocumentText(ctx, documentID, text); err != nil {
		return "", eris.Wrapf(err, "document: persist text %s", documentID)
	}

	s.logger.Info("text extracted", zap.String("document_id", documentID), zap.Int("chars", len(text)))
	return text, nil
}

// MarkProcessed flags the document as processed after a successful analysis.
func (s *Service) MarkProcessed(ctx context.Context, documentID string) error {
	return s.store.SetDocumentStatus(ctx, documentID, model.DocumentProcessed)
}
