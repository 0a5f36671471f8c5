package quality

import (
	"github.com/m-mizutani/docaudit/pkg/model"
)

// Score band lower bounds, inclusive.
const (
	KeepThreshold       = 85.0
	ReviewThreshold     = 70.0
	QuarantineThreshold = 60.0
)

// Aggregate computes the overall score as the mean over the schema dimensions
// and picks an action. A valid model-recommended action wins; otherwise the
// action follows the score bands.
func Aggregate(dims map[model.DimensionName]model.DimensionScore, modelAction string) (float64, model.Action) {
	var total float64
	for _, name := range model.Dimensions {
		ds, ok := dims[name]
		if !ok {
			ds = model.DefaultDimensionScoreValue()
		}
		total += float64(ds.Score)
	}
	overall := total / float64(len(model.Dimensions))

	if action, ok := model.ParseAction(modelAction); ok {
		return overall, action
	}
	return overall, ActionForScore(overall)
}

// ActionForScore maps an overall score to its band.
func ActionForScore(score float64) model.Action {
	switch {
	case score >= KeepThreshold:
		return model.ActionKeep
	case score >= ReviewThreshold:
		return model.ActionReview
	case score >= QuarantineThreshold:
		return model.ActionQuarantine
	default:
		return model.ActionDiscard
	}
}
