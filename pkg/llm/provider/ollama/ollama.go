// Package ollama implements llm.Model against Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/recall/pkg/llm"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when the request names no model.
	DefaultModel = "llama3.2"
)

// Config holds configuration for the Ollama model client.
type Config struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Model talks to a local Ollama server.
type Model struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an Ollama model client.
func New(c Config) *Model {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Model{baseURL: baseURL, model: model, httpClient: httpClient}
}

func (m *Model) Name() string {
	return "ollama"
}

// Chat sends one non-streaming /api/chat request.
func (m *Model) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	stream := false
	body := ollamaRequest{
		Model:  m.model,
		Stream: &stream,
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if req.MaxTokens != nil || req.Temperature != nil {
		body.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: msg.Role, Content: msg.GetText()})
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &llm.ChatResponse{
		Model:      out.Model,
		CreatedAt:  out.CreatedAt,
		Message:    llm.NewTextMessage(llm.RoleAssistant, out.Message.Content),
		StopReason: out.DoneReason,
		Usage: &llm.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

func (m *Model) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}

var _ llm.Model = (*Model)(nil)
