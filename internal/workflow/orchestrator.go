// Package workflow drives a document analysis from text extraction to stored
// results, in a sequential or a parallel arrangement of the same stages. Both
// arrangements produce identical results for a given set of model responses.
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/legal-analyzer/internal/assemble"
	"github.com/sells-group/legal-analyzer/internal/model"
	"github.com/sells-group/legal-analyzer/pkg/llm"
	"github.com/sells-group/legal-analyzer/pkg/vector"
)

// ErrTextExtraction marks a run that stopped because the document text could
// not be extracted. The failure is already recorded when it is returned.
var ErrTextExtraction = eris.New("workflow: text extraction failed")

// extractionFailureMsg is the user-facing reason stored for ErrTextExtraction.
const extractionFailureMsg = "Impossible d'extraire le texte du document"

// Progress checkpoints. The two arrangements report different intermediate
// values because the parallel one collapses stages.
const (
	progressExtracted = 0.1
	progressClauses   = 0.2
	progressAssembled = 0.4
	progressSeqRecs   = 0.6
	progressSeqRisks  = 0.8
	progressParAdvice = 0.7
	progressParGather = 0.9
)

// Documents is the slice of the document service the orchestrator uses.
type Documents interface {
	ExtractText(ctx context.Context, documentID string) (string, error)
	MarkProcessed(ctx context.Context, documentID string) error
}

// Orchestrator runs the analysis stages against the model, the precedent
// index and the durable store.
type Orchestrator struct {
	llm     llm.Service
	index   vector.Index
	docs    Documents
	tracker *Tracker
	logger  *zap.Logger
}

// New builds an orchestrator over the given collaborators.
func New(svc llm.Service, index vector.Index, docs Documents, tracker *Tracker) *Orchestrator {
	return &Orchestrator{
		llm:     svc,
		index:   index,
		docs:    docs,
		tracker: tracker,
		logger:  zap.L().With(zap.String("component", "workflow")),
	}
}

// Run executes the stages one after the other.
func (o *Orchestrator) Run(ctx context.Context, analysisID, documentID, documentType string) error {
	return o.finish(ctx, analysisID, o.runSequential(ctx, analysisID, documentID, documentType))
}

// RunParallel executes independent stages concurrently: recommendations with
// risks, then precedent searches with the generative fallback and the summary.
func (o *Orchestrator) RunParallel(ctx context.Context, analysisID, documentID, documentType string) error {
	return o.finish(ctx, analysisID, o.runParallel(ctx, analysisID, documentID, documentType))
}

// finish records the failure of a run. Extraction failures are already
// recorded with their own reason; anything else is stored with the full
// error chain.
func (o *Orchestrator) finish(ctx context.Context, analysisID string, err error) error {
	if err == nil || errors.Is(err, ErrTextExtraction) {
		return err
	}
	o.logger.Error("analysis failed",
		zap.String("analysis_id", analysisID),
		zap.Error(err),
	)
	reason := eris.ToString(err, true)
	if serr := o.tracker.SetStatus(ctx, analysisID, model.StatusFailed, reason); serr != nil {
		o.logger.Error("recording failure", zap.String("analysis_id", analysisID), zap.Error(serr))
	}
	return err
}

// begin marks the analysis in progress and extracts the document text.
func (o *Orchestrator) begin(ctx context.Context, analysisID, documentID string) (string, error) {
	if err := o.tracker.SetStatus(ctx, analysisID, model.StatusInProgress, ""); err != nil {
		return "", err
	}
	if err := o.tracker.SetProgress(ctx, analysisID, progressExtracted); err != nil {
		return "", err
	}

	text, err := o.docs.ExtractText(ctx, documentID)
	if err != nil || text == "" {
		o.logger.Error("text extraction failed",
			zap.String("analysis_id", analysisID),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		if serr := o.tracker.SetStatus(ctx, analysisID, model.StatusFailed, extractionFailureMsg); serr != nil {
			return "", serr
		}
		return "", ErrTextExtraction
	}
	return text, nil
}

// conclude stores the results and flags the source document processed. A
// failed document-status update never fails a completed analysis.
func (o *Orchestrator) conclude(ctx context.Context, analysisID, documentID string, results *model.AnalysisResults) error {
	if err := o.tracker.Complete(ctx, analysisID, results); err != nil {
		return err
	}
	if err := o.docs.MarkProcessed(ctx, documentID); err != nil {
		o.logger.Warn("marking document processed failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
	o.logger.Info("analysis completed",
		zap.String("analysis_id", analysisID),
		zap.Int("clauses", len(results.Clauses)),
		zap.Int("recommendations", len(results.Recommendations)),
		zap.Int("risks", len(results.Risks)),
		zap.Int("precedents", len(results.Precedents)),
	)
	return nil
}

func (o *Orchestrator) runSequential(ctx context.Context, analysisID, documentID, documentType string) error {
	o.logger.Info("starting sequential analysis",
		zap.String("analysis_id", analysisID),
		zap.String("document_id", documentID),
		zap.String("document_type", documentType),
	)

	text, err := o.begin(ctx, analysisID, documentID)
	if err != nil {
		return err
	}
	if err := o.tracker.SetProgress(ctx, analysisID, progressClauses); err != nil {
		return err
	}

	clauseRecords, err := o.llm.ExtractClauses(ctx, text, documentType)
	if err != nil {
		return err
	}
	clauses := assemble.Clauses(clauseRecords)
	if err := o.tracker.SetProgress(ctx, analysisID, progressAssembled); err != nil {
		return err
	}

	recRecords, err := o.llm.GenerateRecommendations(ctx, clauseRecords, documentType)
	if err != nil {
		return err
	}
	recommendations := assemble.Recommendations(recRecords)
	if err := o.tracker.SetProgress(ctx, analysisID, progressSeqRecs); err != nil {
		return err
	}

	riskRecords, err := o.llm.IdentifyRisks(ctx, clauseRecords, documentType)
	if err != nil {
		return err
	}
	risks := assemble.Risks(riskRecords)
	if err := o.tracker.SetProgress(ctx, analysisID, progressSeqRisks); err != nil {
		return err
	}

	precedents := o.collectPrecedents(ctx, clauses, clauseRecords, documentType)

	summary, err := o.llm.GenerateSummary(ctx, text, clauseRecords, riskRecords, documentType)
	if err != nil {
		return err
	}

	results := newResults(clauses, recommendations, risks, precedents, summary, documentType)
	return o.conclude(ctx, analysisID, documentID, results)
}

func (o *Orchestrator) runParallel(ctx context.Context, analysisID, documentID, documentType string) error {
	o.logger.Info("starting parallel analysis",
		zap.String("analysis_id", analysisID),
		zap.String("document_id", documentID),
		zap.String("document_type", documentType),
	)

	text, err := o.begin(ctx, analysisID, documentID)
	if err != nil {
		return err
	}
	if err := o.tracker.SetProgress(ctx, analysisID, progressClauses); err != nil {
		return err
	}

	clauseRecords, err := o.llm.ExtractClauses(ctx, text, documentType)
	if err != nil {
		return err
	}
	clauses := assemble.Clauses(clauseRecords)
	if err := o.tracker.SetProgress(ctx, analysisID, progressAssembled); err != nil {
		return err
	}

	// Recommendations and risks only depend on the clauses.
	var (
		recRecords  []llm.Record
		riskRecords []llm.Record
		g           errgroup.Group
	)
	g.Go(func() error {
		var gerr error
		recRecords, gerr = o.llm.GenerateRecommendations(ctx, clauseRecords, documentType)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		riskRecords, gerr = o.llm.IdentifyRisks(ctx, clauseRecords, documentType)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return err
	}
	recommendations := assemble.Recommendations(recRecords)
	risks := assemble.Risks(riskRecords)
	if err := o.tracker.SetProgress(ctx, analysisID, progressParAdvice); err != nil {
		return err
	}

	// Vector searches, the generative fallback and the summary are mutually
	// independent. The fallback is generated eagerly and only used when the
	// corpus came up short, keeping the output identical to the sequential
	// arrangement.
	queries := highRiskQueries(clauses)
	o.logger.Info("searching precedents", zap.Int("high_risk_clauses", len(queries)))

	hits := make([][]model.Precedent, len(queries))
	var searches sync.WaitGroup
	for i, q := range queries {
		searches.Add(1)
		go func(i int, q string) {
			defer searches.Done()
			found, serr := o.index.SearchSimilar(ctx, q, vectorSearchLimit)
			if serr != nil {
				o.logger.Error("precedent search failed", zap.Error(serr))
				return
			}
			hits[i] = found
		}(i, q)
	}

	var (
		genRecords []llm.Record
		genErr     error
		summary    string
		summaryErr error
		aux        sync.WaitGroup
	)
	aux.Add(2)
	go func() {
		defer aux.Done()
		genRecords, genErr = o.llm.IdentifyPrecedents(ctx, clauseRecords, documentType)
	}()
	go func() {
		defer aux.Done()
		summary, summaryErr = o.llm.GenerateSummary(ctx, text, clauseRecords, riskRecords, documentType)
	}()

	searches.Wait()
	aux.Wait()

	precedents := make([]model.Precedent, 0, generativeThreshold)
	for _, found := range hits {
		precedents = append(precedents, found...)
	}
	precedents = o.appendGenerative(precedents, genRecords, genErr)

	if summaryErr != nil {
		return summaryErr
	}
	if err := o.tracker.SetProgress(ctx, analysisID, progressParGather); err != nil {
		return err
	}

	results := newResults(clauses, recommendations, risks, precedents, summary, documentType)
	return o.conclude(ctx, analysisID, documentID, results)
}

// newResults wraps the stage outputs with the run metadata.
func newResults(clauses []model.Clause, recs []model.Recommendation, risks []model.Risk, precedents []model.Precedent, summary, documentType string) *model.AnalysisResults {
	return &model.AnalysisResults{
		Clauses:         clauses,
		Recommendations: recs,
		Risks:           risks,
		Precedents:      precedents,
		Summary:         summary,
		Metadata: map[string]any{
			"document_type": documentType,
			"analysis_date": time.Now().UTC().Format(time.RFC3339),
		},
	}
}
