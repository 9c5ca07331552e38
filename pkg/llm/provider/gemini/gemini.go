// Package gemini implements llm.Model with Google's generative AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/papercomputeco/recall/pkg/llm"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds configuration for the Gemini model client.
type Config struct {
	APIKey string
	Model  string

	// ClientOptions are appended after the API key option.
	ClientOptions []option.ClientOption
}

// Model wraps a genai client.
type Model struct {
	client *genai.Client
	model  string
}

// New creates a Gemini model client.
func New(ctx context.Context, c Config) (*Model, error) {
	if c.APIKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.APIKey)}, c.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	return &Model{client: client, model: model}, nil
}

func (m *Model) Name() string {
	return "gemini"
}

// Chat replays all but the last message as history and sends the last one.
func (m *Model) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	name := m.model
	if req.Model != "" {
		name = req.Model
	}

	gm := m.client.GenerativeModel(name)
	if req.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.MaxTokens != nil {
		gm.SetMaxOutputTokens(int32(*req.MaxTokens))
	}
	if req.Temperature != nil {
		gm.SetTemperature(float32(*req.Temperature))
	}

	history, last, err := splitMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	cs := gm.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &llm.ChatResponse{
		Model:     name,
		CreatedAt: time.Now(),
		Message:   llm.NewTextMessage(llm.RoleAssistant, responseText(resp)),
	}
	if len(resp.Candidates) > 0 {
		out.StopReason = strings.ToLower(fmt.Sprint(resp.Candidates[0].FinishReason))
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// splitMessages converts every message but the last into chat history.
func splitMessages(msgs []llm.Message) ([]*genai.Content, string, error) {
	if len(msgs) == 0 {
		return nil, "", errors.New("gemini: request has no messages")
	}

	history := make([]*genai.Content, 0, len(msgs)-1)
	for _, msg := range msgs[:len(msgs)-1] {
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.GetText())},
		})
	}

	last := msgs[len(msgs)-1]
	return history, last.GetText(), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func (m *Model) Close() error {
	return m.client.Close()
}

var _ llm.Model = (*Model)(nil)
