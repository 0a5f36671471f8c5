package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/docaudit/pkg/adapter"
	"github.com/m-mizutani/docaudit/pkg/model"
	"github.com/m-mizutani/docaudit/pkg/usecase/quality"
	"github.com/m-mizutani/gt"
)

func TestGeminiGenerate(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, "us-central1")
	gt.NoError(t, err)

	resp, err := client.Generate(ctx, "", `Return {"capital": "<capital of France>"} as JSON.`)
	gt.NoError(t, err)
	gt.S(t, resp).Contains("Paris")

	t.Log("response:", resp)
}

func TestGeminiEmbed(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, "us-central1")
	gt.NoError(t, err)

	vec, err := client.Embed(ctx, "quarterly revenue report")
	gt.NoError(t, err)
	gt.Number(t, len(vec)).GreaterOrEqual(1)
}

func TestGeminiGenerateWithSchema(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, projectID, "us-central1",
		adapter.WithTemperature(0),
		adapter.WithResponseSchema(quality.AnswerSchema()),
	)
	gt.NoError(t, err)

	prompt, err := quality.BuildPrompt("Minutes of the 2025 budget meeting. Attendees: finance team.", "minutes.txt")
	gt.NoError(t, err)

	resp, err := client.Generate(ctx, "", prompt)
	gt.NoError(t, err)

	dims := quality.ParseAnswer(resp).Dimensions()
	for _, d := range model.Dimensions {
		gt.Map(t, dims).HasKey(string(d))
	}
}
