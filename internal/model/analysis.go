package model

import "time"

// AnalysisStatus represents the lifecycle state of an analysis.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusInProgress AnalysisStatus = "in_progress"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ClauseType classifies an extracted clause.
type ClauseType string

const (
	ClauseObligation           ClauseType = "obligation"
	ClauseRestriction          ClauseType = "restriction"
	ClauseRight                ClauseType = "right"
	ClauseTermination          ClauseType = "termination"
	ClauseConfidentiality      ClauseType = "confidentiality"
	ClauseIntellectualProperty ClauseType = "intellectual_property"
	ClauseLiability            ClauseType = "liability"
	ClausePayment              ClauseType = "payment"
	ClauseDuration             ClauseType = "duration"
	ClauseOther                ClauseType = "other"
)

var clauseTypes = map[ClauseType]bool{
	ClauseObligation:           true,
	ClauseRestriction:          true,
	ClauseRight:                true,
	ClauseTermination:          true,
	ClauseConfidentiality:      true,
	ClauseIntellectualProperty: true,
	ClauseLiability:            true,
	ClausePayment:              true,
	ClauseDuration:             true,
	ClauseOther:                true,
}

// ValidClauseType reports whether s is one of the canonical clause types.
func ValidClauseType(s string) bool {
	return clauseTypes[ClauseType(s)]
}

// Risk levels range 1 (very low) to 5 (very high).
const (
	RiskVeryLow  = 1
	RiskLow      = 2
	RiskMedium   = 3
	RiskHigh     = 4
	RiskVeryHigh = 5
)

// Recommendation priorities range 1 (low) to 3 (high).
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Clause is a single provision extracted verbatim from a document.
// Immutable once produced by the extraction stage.
type Clause struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      ClauseType `json:"type"`
	RiskLevel int        `json:"risk_level"`
	Analysis  string     `json:"analysis"`
}

// HighRisk reports whether the clause should drive targeted precedent search.
func (c Clause) HighRisk() bool {
	return c.RiskLevel >= RiskHigh
}

// Recommendation suggests a contract improvement tied to extracted clauses.
type Recommendation struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       int      `json:"priority"`
	SuggestedText  string   `json:"suggested_text,omitempty"`
	RelatedClauses []string `json:"related_clauses"`
}

// Risk is a legal risk identified from the extracted clauses.
type Risk struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	Impact      string `json:"impact"`
	Mitigation  string `json:"mitigation,omitempty"`
}

// Precedent is a prior case or reference judged relevant to a clause.
// SimilarityScore is cosine similarity for vector-retrieved precedents and
// a fixed 0.95 for model-generated ones.
type Precedent struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Type            string  `json:"type"`
	Relevance       string  `json:"relevance"`
	Source          string  `json:"source,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// AnalysisResults aggregates the outcome of a completed analysis.
// Created exactly once, at the end of a successful run.
type AnalysisResults struct {
	Clauses         []Clause         `json:"clauses"`
	Recommendations []Recommendation `json:"recommendations"`
	Risks           []Risk           `json:"risks"`
	Precedents      []Precedent      `json:"precedents"`
	Summary         string           `json:"summary,omitempty"`
	Metadata        map[string]any   `json:"metadata"`
}

// Analysis tracks one document analysis run.
// Results is non-nil iff Status is completed; Error is non-empty only when
// Status is failed.
type Analysis struct {
	ID             string           `json:"id"`
	DocumentID     string           `json:"document_id"`
	DocumentType   string           `json:"document_type"`
	Status         AnalysisStatus   `json:"status"`
	Progress       float64          `json:"progress"`
	Results        *AnalysisResults `json:"results,omitempty"`
	Error          string           `json:"error,omitempty"`
	ProcessingTime float64          `json:"processing_time_seconds,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
