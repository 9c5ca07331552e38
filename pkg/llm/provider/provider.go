// Package provider builds llm.Model clients for the supported providers.
package provider

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/recall/pkg/llm/provider/gemini"
	"github.com/papercomputeco/recall/pkg/llm/provider/ollama"
	"github.com/papercomputeco/recall/pkg/llm/provider/openai"
)

// Options configures New.
type Options struct {
	// Provider is one of SupportedProviders. Empty detects it from Model.
	Provider string
	Model    string

	// Target overrides the provider endpoint (Ollama URL, OpenAI-compatible
	// base URL, Anthropic base URL).
	Target string

	// APIKey overrides the key read from the environment.
	APIKey string

	MaxTokens int

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// MissingCredentialError reports a provider whose API key is not set.
type MissingCredentialError struct {
	Provider string
	Env      []string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s requires an API key: set %s", e.Provider, strings.Join(e.Env, " or "))
}

// New creates a Model for the configured provider.
func New(ctx context.Context, o Options) (llm.Model, error) {
	providerType := o.Provider
	if providerType == "" {
		providerType = DetectFromModel(o.Model)
	}

	key, err := resolveKey(providerType, o)
	if err != nil {
		return nil, err
	}

	switch providerType {
	case Gemini:
		return gemini.New(ctx, gemini.Config{APIKey: key, Model: o.Model})
	case OpenAI:
		return openai.New(openai.Config{APIKey: key, BaseURL: o.Target, Model: o.Model})
	case Anthropic:
		return anthropic.New(anthropic.Config{APIKey: key, BaseURL: o.Target, Model: o.Model, MaxTokens: o.MaxTokens})
	case Ollama:
		return ollama.New(ollama.Config{BaseURL: o.Target, Model: o.Model}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}

// CheckCredentials reports a MissingCredentialError when the provider needs
// a key and none is set.
func CheckCredentials(providerType string, getenv func(string) string) error {
	_, err := resolveKey(providerType, Options{Getenv: getenv})
	return err
}

func resolveKey(providerType string, o Options) (string, error) {
	if o.APIKey != "" {
		return o.APIKey, nil
	}

	env := credentialEnv[providerType]
	if len(env) == 0 {
		return "", nil
	}

	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range env {
		if v := getenv(name); v != "" {
			return v, nil
		}
	}

	// OpenAI-compatible local servers take no key.
	if providerType == OpenAI && o.Target != "" {
		return "", nil
	}
	return "", &MissingCredentialError{Provider: providerType, Env: env}
}
