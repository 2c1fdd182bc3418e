package openai

import (
	"context"
	"fmt"
	"strings"

	"holanu-server/internal/observability"

	"github.com/openai/openai-go"
	openaiOption "github.com/openai/openai-go/option"
)

const defaultModel = openai.ChatModelGPT4oMini

// Client generates listing copy through the OpenAI chat API. The chat
// endpoint returns one choice per request, so variants are produced with
// n sequential calls.
type Client struct {
	client openai.Client
	model  openai.ChatModel
	logger *observability.Logger
}

func NewClient(apiKey string, logger *observability.Logger) *Client {
	client := openai.NewClient(
		openaiOption.WithAPIKey(apiKey),
	)
	return &Client{
		client: client,
		model:  defaultModel,
		logger: logger,
	}
}

func (c *Client) GenerateVariants(ctx context.Context, prompt string, n int) ([]string, error) {
	variants := make([]string, 0, n)
	for i := 0; i < n; i++ {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: c.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			c.logger.Error(ctx, "failed to generate chat completion", err)
			return nil, fmt.Errorf("failed to generate chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if out := strings.TrimSpace(resp.Choices[0].Message.Content); out != "" {
			variants = append(variants, out)
		}
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("no text returned from OpenAI")
	}
	return variants, nil
}

// ModelName reports which model the client is configured for
func (c *Client) ModelName() string {
	return string(c.model)
}
