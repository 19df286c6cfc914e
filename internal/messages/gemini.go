package messages

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/solatis/segmentkeeper/internal/types"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const systemInstruction = `You are a marketing assistant specialized in creating personalized customer messages.
Generate concise, engaging messages that include the [Name] placeholder.`

// GeminiGenerator generates outreach messages using Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator bound to a single shared client.
// Callers treat an error as "enrichment disabled", not as fatal.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY is not set", types.ErrUpstreamUnavailable)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate asks the model for one message serving the objective.
func (g *GeminiGenerator) Generate(ctx context.Context, objective string) (string, error) {
	prompt := fmt.Sprintf("Write one short marketing message for this campaign objective: %s", objective)

	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("%w: no response from model", types.ErrUpstreamUnavailable)
	}

	return result.Text(), nil
}

// Name returns the generator name.
func (g *GeminiGenerator) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
