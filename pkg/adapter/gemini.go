package adapter

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/docaudit/pkg/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiClient answers quality prompts and embeds text with Vertex AI Gemini
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	temperature     float32
	responseSchema  *jsonschema.Schema
}

var (
	_ interfaces.LLMClient = (*GeminiClient)(nil)
	_ interfaces.Embedder  = (*GeminiClient)(nil)
)

// DefaultTemperature keeps quality scores stable across runs
const DefaultTemperature = 0.1

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithTemperature sets the sampling temperature of quality assessments
func WithTemperature(t float32) GeminiOption {
	return func(g *GeminiClient) {
		g.temperature = t
	}
}

// WithResponseSchema constrains generated answers to schema
func WithResponseSchema(schema *jsonschema.Schema) GeminiOption {
	return func(g *GeminiClient) {
		g.responseSchema = schema
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		temperature:     DefaultTemperature,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// DefaultModel returns the model used when Generate gets an empty name
func (g *GeminiClient) DefaultModel() string {
	return g.generativeModel
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, modelName, prompt string) (string, error) {
	if modelName == "" {
		modelName = g.generativeModel
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	}
	if g.responseSchema != nil {
		config.ResponseJsonSchema = g.responseSchema
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.Value("model", modelName))
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("no candidate in response", goerr.Value("model", modelName))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// Embed returns the embedding of text. Vertex AI returns float32 values,
// which are widened to float64.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.Value("model", g.embeddingModel))
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, goerr.New("no embedding in response", goerr.Value("model", g.embeddingModel))
	}

	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}
