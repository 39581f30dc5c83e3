// Package normalize maps loosely-typed model output onto the canonical
// clause-type, risk-level and priority enumerations. Matching is ordered
// substring search over lowercased input, so overlapping synonyms resolve
// to whichever entry appears first in the table.
package normalize

import (
	"strconv"
	"strings"

	"github.com/sells-group/legal-analyzer/internal/model"
)

type synonym[T any] struct {
	key   string
	value T
}

var clauseTypeTable = []synonym[model.ClauseType]{
	{"confidentialité", model.ClauseConfidentiality},
	{"obligation de confidentialité", model.ClauseConfidentiality},
	{"clause de confidentialité", model.ClauseConfidentiality},
	{"confidentialite", model.ClauseConfidentiality},
	{"obligation", model.ClauseObligation},
	{"restrictions", model.ClauseRestriction},
	{"restriction", model.ClauseRestriction},
	{"droit", model.ClauseRight},
	{"droits", model.ClauseRight},
	{"résiliation", model.ClauseTermination},
	{"resiliation", model.ClauseTermination},
	{"propriété intellectuelle", model.ClauseIntellectualProperty},
	{"propriete intellectuelle", model.ClauseIntellectualProperty},
	{"responsabilité", model.ClauseLiability},
	{"responsabilite", model.ClauseLiability},
	{"paiement", model.ClausePayment},
	{"durée", model.ClauseDuration},
	{"duree", model.ClauseDuration},
	{"autre", model.ClauseOther},
}

var riskLevelTable = []synonym[int]{
	{"très faible", model.RiskVeryLow},
	{"tres faible", model.RiskVeryLow},
	{"faible", model.RiskLow},
	{"moyen", model.RiskMedium},
	{"élevé", model.RiskHigh},
	{"eleve", model.RiskHigh},
	{"très élevé", model.RiskVeryHigh},
	{"tres eleve", model.RiskVeryHigh},
	{"very low", model.RiskVeryLow},
	{"low", model.RiskLow},
	{"medium", model.RiskMedium},
	{"high", model.RiskHigh},
	{"very high", model.RiskVeryHigh},
}

var priorityTable = []synonym[int]{
	{"faible", model.PriorityLow},
	{"basse", model.PriorityLow},
	{"low", model.PriorityLow},
	{"moyenne", model.PriorityMedium},
	{"medium", model.PriorityMedium},
	{"élevée", model.PriorityHigh},
	{"elevee", model.PriorityHigh},
	{"haute", model.PriorityHigh},
	{"high", model.PriorityHigh},
	{"1", model.PriorityLow},
	{"2", model.PriorityMedium},
	{"3", model.PriorityHigh},
}

// ClauseType maps a free-form clause type to a canonical model.ClauseType.
// Canonical values pass through unchanged; anything else goes through the
// synonym table, and unmatched input defaults to other.
func ClauseType(raw string) model.ClauseType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if model.ValidClauseType(s) {
		return model.ClauseType(s)
	}
	for _, syn := range clauseTypeTable {
		if strings.Contains(s, syn.key) {
			return syn.value
		}
	}
	return model.ClauseOther
}

// RiskLevel maps a free-form risk level to the 1..5 scale. In-range numbers
// (including numeric strings) pass through; otherwise the synonym table
// applies, and unmatched input defaults to medium.
func RiskLevel(raw any) int {
	if n, ok := asInt(raw); ok && n >= model.RiskVeryLow && n <= model.RiskVeryHigh {
		return n
	}
	if s, ok := raw.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		for _, syn := range riskLevelTable {
			if strings.Contains(s, syn.key) {
				return syn.value
			}
		}
	}
	return model.RiskMedium
}

// Priority maps a free-form priority to the 1..3 scale. In-range numbers
// pass through; string input goes through the synonym table, which also
// covers bare digits; unmatched input defaults to medium.
func Priority(raw any) int {
	switch v := raw.(type) {
	case int:
		if v >= model.PriorityLow && v <= model.PriorityHigh {
			return v
		}
	case float64:
		n := int(v)
		if float64(n) == v && n >= model.PriorityLow && n <= model.PriorityHigh {
			return n
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		for _, syn := range priorityTable {
			if strings.Contains(s, syn.key) {
				return syn.value
			}
		}
	}
	return model.PriorityMedium
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		n := int(v)
		if float64(n) == v {
			return n, true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}
