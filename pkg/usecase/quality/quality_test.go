package quality_test

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/quality"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func intPtr(v int) *int { return &v }

func TestValidateFillsMissingDimensions(t *testing.T) {
	dims := quality.Validate(map[string]any{
		"accuracy": map[string]any{"score": 91, "evidence": "figures match the appendix"},
	})

	gt.Equal(t, len(dims), len(model.Dimensions))
	gt.Equal(t, dims[model.DimensionAccuracy].Score, 91)
	gt.Equal(t, dims[model.DimensionAccuracy].Evidence, "figures match the appendix")
	gt.Equal(t, dims[model.DimensionCompleteness].Score, model.DefaultDimensionScore)
	gt.Equal(t, dims[model.DimensionCompleteness].Evidence, model.NotAssessedEvidence)
}

func TestValidateNameNormalization(t *testing.T) {
	dims := quality.Validate(map[string]any{
		"INTERPRETABILITY": map[string]any{"score": 10, "evidence": "x"},
		"con-formity":      map[string]any{"score": 20, "evidence": "y"},
		"Trace ability":    map[string]any{"score": 30, "evidence": "z"},
		"objectivity_":     map[string]any{"score": 40, "evidence": "w"},
	})

	gt.Equal(t, dims[model.DimensionInterpretability].Score, 10)
	gt.Equal(t, dims[model.DimensionConformity].Score, 20)
	gt.Equal(t, dims[model.DimensionTraceability].Score, 30)
	gt.Equal(t, dims[model.DimensionObjectivity].Score, 40)
}

func TestValidateNameCollision(t *testing.T) {
	raw := map[string]any{
		"accuracy":    map[string]any{"score": 10, "evidence": "lower case"},
		"Accuracy":    map[string]any{"score": 90, "evidence": "schema name"},
		"ACCURACY":    map[string]any{"score": 30, "evidence": "upper case"},
		"Time_liness": map[string]any{"score": 40, "evidence": "underscore"},
		"time-liness": map[string]any{"score": 70, "evidence": "hyphen"},
	}

	for i := 0; i < 20; i++ {
		dims := quality.Validate(raw)
		gt.Equal(t, dims[model.DimensionAccuracy].Score, 90)
		gt.Equal(t, dims[model.DimensionAccuracy].Evidence, "schema name")
		// neither spelling is exact: first in sorted order
		gt.Equal(t, dims[model.DimensionTimeliness].Score, 40)
	}
}

func TestAnswerSchema(t *testing.T) {
	resolved, err := quality.AnswerSchema().Resolve(nil)
	gt.NoError(t, err)

	dims := map[string]any{}
	for _, d := range model.Dimensions {
		dims[string(d)] = map[string]any{"score": float64(80), "evidence": "ok"}
	}
	answer := map[string]any{
		"summary":            "quarterly numbers",
		"context":            "finance",
		"document_type":      "report",
		"metadata":           map[string]any{"topics": []any{"budget"}},
		"dimensions":         dims,
		"recommended_action": "KEEP",
	}
	gt.NoError(t, resolved.Validate(answer))

	delete(dims, string(model.DimensionConformity))
	gt.True(t, resolved.Validate(answer) != nil)
}

func TestValidateScoreShapes(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected int
		evidence string
	}{
		{"over", map[string]any{"score": 250.0, "evidence": "e"}, 100, "e"},
		{"under", map[string]any{"score": -4.0}, 0, model.NotAssessedEvidence},
		{"fraction", map[string]any{"score": 72.6}, 73, model.NotAssessedEvidence},
		{"string", map[string]any{"score": "64", "evidence": "  "}, 64, model.NotAssessedEvidence},
		{"percent string", map[string]any{"score": "88%"}, 88, model.NotAssessedEvidence},
		{"bare number", 77.0, 77, model.NotAssessedEvidence},
		{"garbage score", map[string]any{"score": "high", "evidence": "kept"}, 50, "kept"},
		{"no score", map[string]any{"evidence": "only evidence"}, 50, "only evidence"},
		{"wrong type", []any{1, 2}, 50, model.NotAssessedEvidence},
		{"nil", nil, 50, model.NotAssessedEvidence},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dims := quality.Validate(map[string]any{"Accuracy": tc.value})
			gt.Equal(t, dims[model.DimensionAccuracy].Score, tc.expected)
			gt.Equal(t, dims[model.DimensionAccuracy].Evidence, tc.evidence)
		})
	}
}

func TestValidateRandomInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	names := append([]string{"unknown", "", "score", "Time liness"}, func() []string {
		out := make([]string, 0, len(model.Dimensions))
		for _, d := range model.Dimensions {
			out = append(out, strings.ToUpper(string(d)))
		}
		return out
	}()...)

	randomValue := func() any {
		switch rnd.Intn(6) {
		case 0:
			return map[string]any{"score": rnd.Float64()*1000 - 500, "evidence": "r"}
		case 1:
			return map[string]any{"score": "NaN"}
		case 2:
			return rnd.Intn(400) - 200
		case 3:
			return "not an object"
		case 4:
			return map[string]any{}
		default:
			return nil
		}
	}

	for i := 0; i < 500; i++ {
		raw := map[string]any{}
		for j := rnd.Intn(len(names)); j > 0; j-- {
			raw[names[rnd.Intn(len(names))]] = randomValue()
		}

		dims := quality.Validate(raw)
		gt.Equal(t, len(dims), len(model.Dimensions))
		for _, d := range model.Dimensions {
			ds, ok := dims[d]
			gt.True(t, ok)
			gt.True(t, ds.Score >= 0 && ds.Score <= 100)
			gt.NotEqual(t, ds.Evidence, "")
		}
	}
}

func TestAdjustTimelinessStale(t *testing.T) {
	dims := quality.Validate(map[string]any{
		"Timeliness": map[string]any{"score": 95, "evidence": "mentions Q3 2024 figures"},
	})

	adjusted := quality.AdjustTimeliness(dims, intPtr(45), []string{"2024-07-01", "2024-08-15", "2024-09-30", "2024-10-01"})
	ds := adjusted[model.DimensionTimeliness]
	gt.Equal(t, ds.Score, 60)
	gt.S(t, ds.Evidence).Contains("45 days")
	gt.S(t, ds.Evidence).Contains("30-day")
	gt.S(t, ds.Evidence).Contains("2024-09-30")
	gt.S(t, ds.Evidence).NotContains("2024-10-01")
	gt.S(t, ds.Evidence).Contains("mentions Q3 2024 figures")

	// input is left untouched
	gt.Equal(t, dims[model.DimensionTimeliness].Score, 95)
}

func TestAdjustTimelinessKeepsLowerScore(t *testing.T) {
	dims := quality.Validate(map[string]any{"Timeliness": map[string]any{"score": 20}})
	adjusted := quality.AdjustTimeliness(dims, intPtr(400), nil)
	gt.Equal(t, adjusted[model.DimensionTimeliness].Score, 20)
}

func TestAdjustTimelinessFresh(t *testing.T) {
	dims := quality.Validate(map[string]any{"Timeliness": map[string]any{"score": 95, "evidence": "current"}})
	adjusted := quality.AdjustTimeliness(dims, intPtr(30), []string{"2020-01-01"})
	ds := adjusted[model.DimensionTimeliness]
	gt.Equal(t, ds.Score, 95)
	gt.S(t, ds.Evidence).Contains("within the 30-day")
	gt.S(t, ds.Evidence).Contains("current")
	gt.S(t, ds.Evidence).NotContains("2020-01-01")
}

func TestAdjustTimelinessUnknownAge(t *testing.T) {
	dims := quality.Validate(map[string]any{"Timeliness": map[string]any{"score": 95, "evidence": "current"}})
	adjusted := quality.AdjustTimeliness(dims, nil, []string{"2020-01-01"})
	gt.Equal(t, adjusted[model.DimensionTimeliness], dims[model.DimensionTimeliness])
}

func TestAdjustTimelinessIdempotent(t *testing.T) {
	dims := quality.Validate(map[string]any{"Timeliness": map[string]any{"score": 90, "evidence": "prior note"}})

	once := quality.AdjustTimeliness(dims, intPtr(45), []string{"2024-01-01"})
	twice := quality.AdjustTimeliness(once, intPtr(45), []string{"2024-01-01"})
	gt.Equal(t, twice[model.DimensionTimeliness], once[model.DimensionTimeliness])
	gt.Equal(t, strings.Count(twice[model.DimensionTimeliness].Evidence, "Upload age"), 1)
	gt.Equal(t, strings.Count(twice[model.DimensionTimeliness].Evidence, "prior note"), 1)
}

func TestAdjustTimelinessMonotonic(t *testing.T) {
	for base := 0; base <= 100; base += 5 {
		dims := quality.Validate(map[string]any{"Timeliness": map[string]any{"score": base}})
		prev := math.MaxInt
		for age := 0; age <= 120; age++ {
			score := quality.AdjustTimeliness(dims, intPtr(age), nil)[model.DimensionTimeliness].Score
			if age > quality.FreshnessThresholdDays {
				gt.True(t, score <= prev)
				gt.True(t, score <= quality.StaleTimelinessCap)
			}
			prev = score
		}
	}
}

func TestAggregate(t *testing.T) {
	dims := quality.Validate(map[string]any{})
	for _, d := range model.Dimensions {
		dims[d] = model.DimensionScore{Score: 90, Evidence: "e"}
	}
	dims[model.DimensionTimeliness] = model.DimensionScore{Score: 5, Evidence: "e"}

	overall, action := quality.Aggregate(dims, "")
	expected := (90.0*16 + 5) / 17
	gt.True(t, math.Abs(overall-expected) < 1e-9)
	// 1445/17 lands exactly on the lower edge of the KEEP band
	gt.Equal(t, action, model.ActionKeep)
}

func TestAggregateModelAction(t *testing.T) {
	dims := quality.Validate(map[string]any{})

	_, action := quality.Aggregate(dims, "keep")
	gt.Equal(t, action, model.ActionKeep)

	_, action = quality.Aggregate(dims, " Quarantine ")
	gt.Equal(t, action, model.ActionQuarantine)

	// unknown value falls back to the bands: all-default dims average 50
	_, action = quality.Aggregate(dims, "ARCHIVE")
	gt.Equal(t, action, model.ActionDiscard)
}

func TestActionForScore(t *testing.T) {
	testCases := []struct {
		score    float64
		expected model.Action
	}{
		{100, model.ActionKeep},
		{85, model.ActionKeep},
		{84.99, model.ActionReview},
		{70, model.ActionReview},
		{69.5, model.ActionQuarantine},
		{60, model.ActionQuarantine},
		{59.99, model.ActionDiscard},
		{0, model.ActionDiscard},
	}

	for _, tc := range testCases {
		gt.Equal(t, quality.ActionForScore(tc.score), tc.expected)
	}
}

func TestParseAnswer(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		raw := "Here is the result:\n```json\n{\"summary\": \"NDA between two parties\", \"document_type\": \"contract\", \"metadata\": {\"topics\": [\"NDA\", 3]}}\n```\n"
		answer := quality.ParseAnswer(raw)
		gt.Equal(t, answer.Summary(), "NDA between two parties")
		gt.Equal(t, answer.DocumentType(), "contract")
		gt.A(t, answer.Metadata().Topics).Length(2)
	})

	t.Run("garbage", func(t *testing.T) {
		answer := quality.ParseAnswer("I cannot help with that")
		gt.Equal(t, len(answer), 0)
		gt.Equal(t, len(answer.Dimensions()), 0)
		gt.A(t, answer.Metadata().Topics).Length(0)
	})

	t.Run("truncated", func(t *testing.T) {
		answer := quality.ParseAnswer(`{"summary": "cut off`)
		gt.Equal(t, answer.Summary(), "")
	})

	t.Run("nested dimensions", func(t *testing.T) {
		answer := quality.ParseAnswer(`{"quality": {"dimensions": {"Accuracy": {"score": 12}}}}`)
		gt.Map(t, answer.Dimensions()).HasKey("Accuracy")
	})
}

func TestAssessMeanInvariant(t *testing.T) {
	answer := quality.ParseAnswer(`{
		"dimensions": {
			"Accuracy": {"score": 100, "evidence": "a"},
			"Timeliness": {"score": 95, "evidence": "t"},
			"usability": {"score": 3}
		},
		"metadata": {"dates": ["2021-01-01"]}
	}`)

	result := quality.Assess(answer, intPtr(45))
	gt.Equal(t, result.Dimensions[model.DimensionTimeliness].Score, 60)

	var total float64
	for _, d := range model.Dimensions {
		total += float64(result.Dimensions[d].Score)
	}
	gt.True(t, math.Abs(result.Overall-total/17) < 1e-9)
}

type llmStub struct {
	answer string
	err    error
	prompt string
	model  string
}

func (l *llmStub) Generate(ctx context.Context, modelName, prompt string) (string, error) {
	l.prompt = prompt
	l.model = modelName
	return l.answer, l.err
}

func TestScore(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt carries the document", func(t *testing.T) {
		llm := &llmStub{answer: `{"summary": "ok"}`}
		answer, err := quality.Score(ctx, llm, "gemini-2.5-pro", "quarterly revenue grew", "q3.txt")
		gt.NoError(t, err)
		gt.Equal(t, answer.Summary(), "ok")
		gt.Equal(t, llm.model, "gemini-2.5-pro")
		gt.S(t, llm.prompt).Contains("quarterly revenue grew")
		gt.S(t, llm.prompt).Contains("q3.txt")
		gt.S(t, llm.prompt).Contains(`"Usability": {"score": 0, "evidence": "..."}`)
	})

	t.Run("content is truncated", func(t *testing.T) {
		llm := &llmStub{answer: "{}"}
		_, err := quality.Score(ctx, llm, "", strings.Repeat("x", quality.MaxPromptContentRunes+500), "big.txt")
		gt.NoError(t, err)
		gt.S(t, llm.prompt).NotContains(strings.Repeat("x", quality.MaxPromptContentRunes+1))
	})

	t.Run("model failure", func(t *testing.T) {
		llm := &llmStub{err: goerr.New("quota exceeded")}
		_, err := quality.Score(ctx, llm, "", "text", "a.txt")
		gt.Error(t, err)
	})
}
