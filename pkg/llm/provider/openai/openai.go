// Package openai implements llm.Model with the OpenAI chat completions API.
// Any OpenAI-compatible endpoint works through Config.BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/recall/pkg/llm"
)

// DefaultModel is used when neither the config nor the request names one.
const DefaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI model client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Model wraps a go-openai client.
type Model struct {
	client *goopenai.Client
	model  string
}

// New creates an OpenAI model client.
func New(c Config) (*Model, error) {
	if c.APIKey == "" && c.BaseURL == "" {
		return nil, errors.New("openai API key is required")
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Model{client: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

func (m *Model) Name() string {
	return "openai"
}

// Chat sends one chat completion request.
func (m *Model) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	creq := goopenai.ChatCompletionRequest{Model: m.model}
	if req.Model != "" {
		creq.Model = req.Model
	}
	if req.MaxTokens != nil {
		creq.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
	}

	if req.System != "" {
		creq.Messages = append(creq.Messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		if msg.Role == llm.RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		creq.Messages = append(creq.Messages, goopenai.ChatCompletionMessage{
			Role:    role,
			Content: msg.GetText(),
		})
	}

	resp, err := m.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &llm.ChatResponse{Model: resp.Model}, nil
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Model:      resp.Model,
		CreatedAt:  time.Unix(resp.Created, 0),
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (m *Model) Close() error {
	return nil
}

var _ llm.Model = (*Model)(nil)
