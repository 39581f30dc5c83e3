// Package assemble converts loosely-typed model records into the typed
// result structures. Records missing a required field are logged and
// dropped; input order is preserved.
package assemble

import (
	"go.uber.org/zap"

	"github.com/sells-group/legal-analyzer/internal/model"
	"github.com/sells-group/legal-analyzer/internal/normalize"
	"github.com/sells-group/legal-analyzer/pkg/llm"
)

// Sentinel clause inserted when extraction yields nothing, so downstream
// stages and consumers always see at least one clause.
const (
	sentinelTitle    = "Document incomplet"
	sentinelContent  = "Le document ne contient pas de clauses explicites ou elles n'ont pas pu être extraites."
	sentinelAnalysis = "Document incomplet ou non structuré. Recommandé d'ajouter des clauses explicites."
)

// Clauses builds typed clauses from extraction records. An empty result is
// replaced by the single sentinel clause.
func Clauses(records []llm.Record) []model.Clause {
	clauses := make([]model.Clause, 0, len(records))
	for _, r := range records {
		title, okTitle := r.String("title")
		content, okContent := r.String("content")
		analysis, okAnalysis := r.String("analysis")
		ctype, okType := r.String("type")
		risk, okRisk := r["risk_level"]
		if !okTitle || !okContent || !okAnalysis || !okType || !okRisk {
			zap.L().Error("dropping malformed clause record", zap.Any("record", r))
			continue
		}
		clauses = append(clauses, model.Clause{
			Title:     title,
			Content:   content,
			Type:      normalize.ClauseType(ctype),
			RiskLevel: normalize.RiskLevel(risk),
			Analysis:  analysis,
		})
	}

	if len(clauses) == 0 {
		zap.L().Warn("no clauses extracted, inserting default clause")
		clauses = append(clauses, model.Clause{
			Title:     sentinelTitle,
			Content:   sentinelContent,
			Type:      model.ClauseOther,
			RiskLevel: model.RiskMedium,
			Analysis:  sentinelAnalysis,
		})
	}
	return clauses
}

// Recommendations builds typed recommendations from model records.
func Recommendations(records []llm.Record) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(records))
	for _, r := range records {
		title, okTitle := r.String("title")
		description, okDesc := r.String("description")
		priority, okPrio := r["priority"]
		if !okTitle || !okDesc || !okPrio {
			zap.L().Error("dropping malformed recommendation record", zap.Any("record", r))
			continue
		}
		recs = append(recs, model.Recommendation{
			Title:          title,
			Description:    description,
			Priority:       normalize.Priority(priority),
			SuggestedText:  r.StringOr("suggested_text", ""),
			RelatedClauses: r.StringSlice("related_clauses"),
		})
	}
	return recs
}

// Risks builds typed risks from model records.
func Risks(records []llm.Record) []model.Risk {
	risks := make([]model.Risk, 0, len(records))
	for _, r := range records {
		title, okTitle := r.String("title")
		description, okDesc := r.String("description")
		impact, okImpact := r.String("impact")
		level, okLevel := r["level"]
		if !okTitle || !okDesc || !okImpact || !okLevel {
			zap.L().Error("dropping malformed risk record", zap.Any("record", r))
			continue
		}
		risks = append(risks, model.Risk{
			Title:       title,
			Description: description,
			Level:       normalize.RiskLevel(level),
			Impact:      impact,
			Mitigation:  r.StringOr("mitigation", ""),
		})
	}
	return risks
}

// GenerativeScore is assigned to model-generated precedents, ranking them
// above most vector-retrieved hits.
const GenerativeScore = 0.95

// Precedents builds typed precedents from model records. Every field is
// optional, so records are never dropped.
func Precedents(records []llm.Record) []model.Precedent {
	precedents := make([]model.Precedent, 0, len(records))
	for _, r := range records {
		precedents = append(precedents, model.Precedent{
			Title:           r.StringOr("title", ""),
			Description:     r.StringOr("description", ""),
			Type:            r.StringOr("type", ""),
			Relevance:       r.StringOr("relevance", ""),
			Source:          r.StringOr("source", ""),
			SimilarityScore: GenerativeScore,
		})
	}
	return precedents
}
