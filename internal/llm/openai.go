package llm

import (
	"context"
	"strings"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/repository"
	apphttp "FinPrompt/pkg/http"
)

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint (DeepSeek by default).
type OpenAIClient struct {
	http      *apphttp.Client
	url       string
	model     string
	maxTokens int
}

var _ repository.Completer = (*OpenAIClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(cfg Config, opts ...apphttp.ClientOption) *OpenAIClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	opts = append([]apphttp.ClientOption{apphttp.WithTimeout(cfg.Timeout), apphttp.WithBearerToken(cfg.APIKey)}, opts...)
	return &OpenAIClient{
		http:      apphttp.NewClient(opts...),
		url:       strings.TrimRight(base, "/") + "/chat/completions",
		model:     NormalizeModel(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp chatResponse
	err := c.http.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    c.url,
		Body:   req,
	}, &resp)
	if err != nil {
		return "", apperr.CompletionFailure(string(OpenAI), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperr.CompletionFailure(string(OpenAI), errEmptyReply)
	}
	return resp.Choices[0].Message.Content, nil
}
