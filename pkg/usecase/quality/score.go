package quality

import (
	"context"

	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Score asks the model to assess a document. Only a failed model call is an
// error; an unusable answer comes back as an empty Answer.
func Score(ctx context.Context, llm interfaces.LLMClient, modelName, text, fileName string) (Answer, error) {
	prompt, err := BuildPrompt(text, fileName)
	if err != nil {
		return nil, err
	}

	raw, err := llm.Generate(ctx, modelName, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate quality assessment", goerr.V("file_name", fileName))
	}

	return ParseAnswer(raw), nil
}

// Assessment is the validated, adjusted and aggregated quality of a document.
type Assessment struct {
	Dimensions map[model.DimensionName]model.DimensionScore
	Overall    float64
	Action     model.Action
}

// Assess runs validation, the timeliness rule and aggregation, in that order.
func Assess(answer Answer, uploadAgeDays *int) *Assessment {
	dims := Validate(answer.Dimensions())
	dims = AdjustTimeliness(dims, uploadAgeDays, answer.Metadata().Dates)
	overall, action := Aggregate(dims, answer.RecommendedAction())

	return &Assessment{
		Dimensions: dims,
		Overall:    overall,
		Action:     action,
	}
}
