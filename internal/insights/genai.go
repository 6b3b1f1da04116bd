package insights

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI generates text with the Gemini API. Credentials come from apiKey or,
// when empty, the GOOGLE_API_KEY / GEMINI_API_KEY environment variables.
type GenAI struct {
	client *genai.Client
}

func NewGenAI(ctx context.Context, apiKey string) (*GenAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{client: client}, nil
}

func (g *GenAI) Generate(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
