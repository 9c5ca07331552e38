package provider

import "strings"

// modelPrefixes maps model name prefixes to their provider, checked in order.
var modelPrefixes = []struct {
	prefix   string
	provider string
}{
	{"gemini-", Gemini},
	{"models/gemini", Gemini},
	{"claude-", Anthropic},
	{"gpt-", OpenAI},
	{"o1", OpenAI},
	{"o3", OpenAI},
	{"o4", OpenAI},
	{"chatgpt-", OpenAI},
}

// DetectFromModel guesses the provider from a model name. Anything
// unrecognized is assumed to be a local Ollama model.
func DetectFromModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, p := range modelPrefixes {
		if strings.HasPrefix(m, p.prefix) {
			return p.provider
		}
	}
	return Ollama
}
