package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Service exposes the analysis operations the workflow consumes. Each
// operation returns loosely-typed records; generation failures propagate,
// malformed JSON degrades to an empty result.
type Service interface {
	ExtractClauses(ctx context.Context, documentText, documentType string) ([]Record, error)
	GenerateRecommendations(ctx context.Context, clauses []Record, documentType string) ([]Record, error)
	IdentifyRisks(ctx context.Context, clauses []Record, documentType string) ([]Record, error)
	IdentifyPrecedents(ctx context.Context, clauses []Record, documentType string) ([]Record, error)
	GenerateSummary(ctx context.Context, documentText string, clauses, risks []Record, documentType string) (string, error)
}

const summaryPreviewChars = 2000

type service struct {
	client  Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewService wraps a chat client with the analysis operations. timeout, when
// positive, bounds each generation call.
func NewService(client Client, timeout time.Duration) Service {
	return &service{
		client:  client,
		timeout: timeout,
		logger:  zap.L().With(zap.String("component", "llm_service")),
	}
}

func (s *service) generate(ctx context.Context, req TextRequest) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.GenerateText(ctx, req)
}

func (s *service) ExtractClauses(ctx context.Context, documentText, documentType string) ([]Record, error) {
	s.logger.Info("extracting clauses", zap.String("document_type", documentType))

	raw, err := s.generate(ctx, TextRequest{
		System:      systemExtractClauses,
		Prompt:      promptExtractClauses(documentText, documentType),
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract clauses")
	}

	records := ExtractRecords(raw)
	s.logger.Info("clauses extracted", zap.Int("count", len(records)))
	return records, nil
}

func (s *service) GenerateRecommendations(ctx context.Context, clauses []Record, documentType string) ([]Record, error) {
	s.logger.Info("generating recommendations", zap.String("document_type", documentType))

	raw, err := s.generate(ctx, TextRequest{
		System:      systemRecommendations,
		Prompt:      promptRecommendations(marshalRecords(clauses), documentType),
		Temperature: 0.4,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "generate recommendations")
	}

	records := ExtractRecords(raw)
	s.logger.Info("recommendations generated", zap.Int("count", len(records)))
	return records, nil
}

func (s *service) IdentifyRisks(ctx context.Context, clauses []Record, documentType string) ([]Record, error) {
	s.logger.Info("identifying risks", zap.String("document_type", documentType))

	raw, err := s.generate(ctx, TextRequest{
		System:      systemRisks,
		Prompt:      promptRisks(marshalRecords(clauses), documentType),
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "identify risks")
	}

	records := ExtractRecords(raw)
	s.logger.Info("risks identified", zap.Int("count", len(records)))
	return records, nil
}

func (s *service) IdentifyPrecedents(ctx context.Context, clauses []Record, documentType string) ([]Record, error) {
	s.logger.Info("identifying precedents", zap.String("document_type", documentType))

	raw, err := s.generate(ctx, TextRequest{
		System:      systemPrecedents,
		Prompt:      promptPrecedents(marshalRecords(clauses), documentType),
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "identify precedents")
	}

	records := ExtractRecords(raw)
	s.logger.Info("precedents identified", zap.Int("count", len(records)))
	return records, nil
}

func (s *service) GenerateSummary(ctx context.Context, documentText string, clauses, risks []Record, documentType string) (string, error) {
	s.logger.Info("generating summary", zap.String("document_type", documentType))

	preview := documentText
	if runes := []rune(preview); len(runes) > summaryPreviewChars {
		preview = string(runes[:summaryPreviewChars])
	}

	summary, err := s.generate(ctx, TextRequest{
		System:      systemSummary,
		Prompt:      promptSummary(preview, marshalRecords(clauses), marshalRecords(risks), documentType),
		Temperature: 0.5,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", eris.Wrap(err, "generate summary")
	}

	s.logger.Info("summary generated", zap.Int("chars", len(summary)))
	return summary, nil
}

func marshalRecords(records []Record) string {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
