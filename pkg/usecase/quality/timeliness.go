package quality

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/model"
)

const (
	// FreshnessThresholdDays is the upload age above which a document is stale.
	FreshnessThresholdDays = 30
	// StaleTimelinessCap is the highest Timeliness score a stale document keeps.
	StaleTimelinessCap = 60

	maxNotedContentDates = 3

	timelinessNotePrefix = "Upload age "
	priorEvidenceMarker  = " | Model assessment: "
)

// AdjustTimeliness overrides the Timeliness dimension with a rule based on the
// object store upload age. Content dates are only noted in the evidence. When
// uploadAgeDays is nil the dimensions are returned unchanged. The input map is
// not modified.
func AdjustTimeliness(dims map[model.DimensionName]model.DimensionScore, uploadAgeDays *int, contentDates []string) map[model.DimensionName]model.DimensionScore {
	out := make(map[model.DimensionName]model.DimensionScore, len(dims))
	for k, v := range dims {
		out[k] = v
	}
	if uploadAgeDays == nil {
		return out
	}

	current, ok := out[model.DimensionTimeliness]
	if !ok {
		current = model.DefaultDimensionScoreValue()
	}
	prior := priorEvidence(current.Evidence)
	age := *uploadAgeDays

	var note string
	score := current.Score
	if age > FreshnessThresholdDays {
		score = min(score, StaleTimelinessCap)
		note = fmt.Sprintf("%s%d days exceeds the %d-day freshness threshold; score capped at %d.",
			timelinessNotePrefix, age, FreshnessThresholdDays, StaleTimelinessCap)
		if dates := noteDates(contentDates); dates != "" {
			note += " Content dates: " + dates + "."
		}
	} else {
		note = fmt.Sprintf("%s%d days is within the %d-day freshness threshold.",
			timelinessNotePrefix, age, FreshnessThresholdDays)
	}

	out[model.DimensionTimeliness] = model.DimensionScore{
		Score:    score,
		Evidence: note + priorEvidenceMarker + prior,
	}
	return out
}

// priorEvidence strips a note left by an earlier adjustment so that the
// evidence is never prefixed twice.
func priorEvidence(evidence string) string {
	if strings.HasPrefix(evidence, timelinessNotePrefix) {
		if idx := strings.Index(evidence, priorEvidenceMarker); idx >= 0 {
			return evidence[idx+len(priorEvidenceMarker):]
		}
	}
	if strings.TrimSpace(evidence) == "" {
		return model.NotAssessedEvidence
	}
	return evidence
}

func noteDates(dates []string) string {
	picked := make([]string, 0, maxNotedContentDates)
	for _, d := range dates {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		picked = append(picked, d)
		if len(picked) == maxNotedContentDates {
			break
		}
	}
	return strings.Join(picked, ", ")
}
