package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/assemble"
	"github.com/sells-group/legal-analyzer/internal/model"
	"github.com/sells-group/legal-analyzer/pkg/llm"
)

const (
	// maxVectorSearches caps the number of high-risk clauses used as
	// similarity queries.
	maxVectorSearches = 3
	// vectorSearchLimit is the number of hits requested per query.
	vectorSearchLimit = 2
	// generativeThreshold triggers the generative fallback when the corpus
	// returned fewer hits than this.
	generativeThreshold = 3
)

// highRiskQueries returns the contents of up to maxVectorSearches high-risk
// clauses, in clause order.
func highRiskQueries(clauses []model.Clause) []string {
	queries := make([]string, 0, maxVectorSearches)
	for _, c := range clauses {
		if !c.HighRisk() {
			continue
		}
		queries = append(queries, c.Content)
		if len(queries) == maxVectorSearches {
			break
		}
	}
	return queries
}

// appendGenerative adds model-generated precedents when the vector phase came
// up short. Generation failures are logged and leave the list unchanged.
func (o *Orchestrator) appendGenerative(precedents []model.Precedent, records []llm.Record, genErr error) []model.Precedent {
	if len(precedents) >= generativeThreshold {
		return precedents
	}
	if genErr != nil {
		o.logger.Error("generative precedent fallback failed", zap.Error(genErr))
		return precedents
	}
	return append(precedents, assemble.Precedents(records)...)
}

// collectPrecedents runs the vector searches one after the other, then the
// generative fallback when fewer than generativeThreshold hits came back.
// Search failures count as zero hits.
func (o *Orchestrator) collectPrecedents(ctx context.Context, clauses []model.Clause, clauseRecords []llm.Record, documentType string) []model.Precedent {
	precedents := make([]model.Precedent, 0, generativeThreshold)
	queries := highRiskQueries(clauses)
	o.logger.Info("searching precedents", zap.Int("high_risk_clauses", len(queries)))

	for _, q := range queries {
		hits, err := o.index.SearchSimilar(ctx, q, vectorSearchLimit)
		if err != nil {
			o.logger.Error("precedent search failed", zap.Error(err))
			continue
		}
		precedents = append(precedents, hits...)
	}

	if len(precedents) < generativeThreshold {
		o.logger.Info("not enough corpus precedents, generating",
			zap.Int("found", len(precedents)),
		)
		records, err := o.llm.IdentifyPrecedents(ctx, clauseRecords, documentType)
		precedents = o.appendGenerative(precedents, records, err)
	}
	return precedents
}
