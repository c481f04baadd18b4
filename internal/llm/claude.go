package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/repository"
)

// ClaudeClient completes through the Anthropic Messages API.
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

var _ repository.Completer = (*ClaudeClient)(nil)

func NewClaudeClient(cfg Config) *ClaudeClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// single attempt per completion
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeClient{
		client:    anthropic.NewClient(opts...),
		model:     NormalizeModel(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", apperr.CompletionFailure(string(Claude), err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", apperr.CompletionFailure(string(Claude), errEmptyReply)
	}
	return reply.String(), nil
}
