package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/repository"
)

// GeminiClient completes through the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
}

var _ repository.Completer = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: NormalizeModel(cfg.Model), maxTokens: cfg.MaxTokens}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(c.maxTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}, config)
	if err != nil {
		return "", apperr.CompletionFailure(string(Gemini), err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", apperr.CompletionFailure(string(Gemini), errEmptyReply)
	}
	return text, nil
}
