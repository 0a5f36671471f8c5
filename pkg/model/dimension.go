package model

import (
	"strings"
)

// DimensionName is one named quality axis of a document.
type DimensionName string

const (
	DimensionAccuracy         DimensionName = "Accuracy"
	DimensionCompleteness     DimensionName = "Completeness"
	DimensionConsistency      DimensionName = "Consistency"
	DimensionTimeliness       DimensionName = "Timeliness"
	DimensionValidity         DimensionName = "Validity"
	DimensionUniqueness       DimensionName = "Uniqueness"
	DimensionIntegrity        DimensionName = "Integrity"
	DimensionConformity       DimensionName = "Conformity"
	DimensionReliability      DimensionName = "Reliability"
	DimensionRelevance        DimensionName = "Relevance"
	DimensionAccessibility    DimensionName = "Accessibility"
	DimensionInterpretability DimensionName = "Interpretability"
	DimensionPrecision        DimensionName = "Precision"
	DimensionCredibility      DimensionName = "Credibility"
	DimensionTraceability     DimensionName = "Traceability"
	DimensionObjectivity      DimensionName = "Objectivity"
	DimensionUsability        DimensionName = "Usability"
)

// Dimensions is the fixed schema every validated dimension set must cover.
// Older answer formats enumerate only 16 names and leave out Conformity or
// Interpretability; those entries then get the default score.
var Dimensions = []DimensionName{
	DimensionAccuracy,
	DimensionCompleteness,
	DimensionConsistency,
	DimensionTimeliness,
	DimensionValidity,
	DimensionUniqueness,
	DimensionIntegrity,
	DimensionConformity,
	DimensionReliability,
	DimensionRelevance,
	DimensionAccessibility,
	DimensionInterpretability,
	DimensionPrecision,
	DimensionCredibility,
	DimensionTraceability,
	DimensionObjectivity,
	DimensionUsability,
}

const (
	MinDimensionScore     = 0
	MaxDimensionScore     = 100
	DefaultDimensionScore = 50

	// NotAssessedEvidence is used whenever the model gave no usable evidence.
	NotAssessedEvidence = "Dimension not assessed by LLM"
)

// DimensionScore is the validated score of a single dimension.
type DimensionScore struct {
	Score    int    `json:"score" yaml:"score"`
	Evidence string `json:"evidence" yaml:"evidence"`
}

// DefaultDimensionScoreValue returns the neutral score used for dimensions the model did not assess.
func DefaultDimensionScoreValue() DimensionScore {
	return DimensionScore{Score: DefaultDimensionScore, Evidence: NotAssessedEvidence}
}

// NormalizeDimensionKey folds case and treats space, underscore and hyphen as equivalent.
func NormalizeDimensionKey(name string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return r.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// LookupDimension resolves a loosely formatted name against the schema.
func LookupDimension(name string) (DimensionName, bool) {
	key := NormalizeDimensionKey(name)
	for _, d := range Dimensions {
		if NormalizeDimensionKey(string(d)) == key {
			return d, true
		}
	}
	return "", false
}

// Action is the recommended handling of an analyzed document.
type Action string

const (
	ActionKeep       Action = "KEEP"
	ActionReview     Action = "REVIEW"
	ActionQuarantine Action = "QUARANTINE"
	ActionDiscard    Action = "DISCARD"
)

// ParseAction accepts any casing of a known action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionKeep, ActionReview, ActionQuarantine, ActionDiscard:
		return a, true
	default:
		return "", false
	}
}
