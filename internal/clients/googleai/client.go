package googleai

import (
	"context"
	"fmt"
	"strings"

	"holanu-server/internal/observability"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-1.5-flash"

// Client generates listing copy through the Gemini API
type Client struct {
	apiKey string
	model  string
	logger *observability.Logger
}

func NewClient(apiKey string, logger *observability.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  defaultModel,
		logger: logger,
	}
}

// GenerateVariants asks the model for n candidate texts in a single call.
// Candidates that come back empty are skipped, so the result may be shorter
// than n.
func (c *Client) GenerateVariants(ctx context.Context, prompt string, n int) ([]string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		c.logger.Error(ctx, "failed to create Gemini client", err)
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetCandidateCount(int32(n))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error(ctx, "failed to generate content", err)
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	var variants []string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if out := strings.TrimSpace(sb.String()); out != "" {
			variants = append(variants, out)
		}
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("no text returned from Gemini")
	}
	return variants, nil
}

// ModelName reports which model the client is configured for
func (c *Client) ModelName() string {
	return c.model
}
