// Package anthropic implements llm.Model with Anthropic's Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/recall/pkg/llm"
)

const (
	// DefaultModel is used when neither the config nor the request names one.
	DefaultModel = "claude-3-5-haiku-latest"

	// DefaultMaxTokens is required by the Messages API.
	DefaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic model client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Model wraps the Anthropic SDK client.
type Model struct {
	client    sdk.Client
	model     string
	maxTokens int
}

// New creates an Anthropic model client. The SDK's own retries are off.
func New(c Config) (*Model, error) {
	if c.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithMaxRetries(0),
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Model{
		client:    sdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (m *Model) Name() string {
	return "anthropic"
}

// Chat sends one Messages API request.
func (m *Model) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(m.model),
		MaxTokens: int64(m.maxTokens),
	}
	if req.Model != "" {
		params.Model = sdk.Model(req.Model)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = int64(*req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	for _, msg := range req.Messages {
		block := sdk.NewTextBlock(msg.GetText())
		if msg.Role == llm.RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, sdk.NewUserMessage(block))
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(sdk.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return &llm.ChatResponse{
		Model:      string(msg.Model),
		CreatedAt:  time.Now(),
		Message:    llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason: string(msg.StopReason),
		Usage: &llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func (m *Model) Close() error {
	return nil
}

var _ llm.Model = (*Model)(nil)
