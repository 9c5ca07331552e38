package provider

// Supported provider type constants
const (
	Gemini    = "gemini"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Gemini, OpenAI, Anthropic, Ollama}
}

// credentialEnv lists, per provider, the environment variables checked for
// an API key, in order.
var credentialEnv = map[string][]string{
	Gemini:    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	OpenAI:    {"OPENAI_API_KEY"},
	Anthropic: {"ANTHROPIC_API_KEY"},
}

// CredentialEnv returns the environment variables holding the provider's API
// key. Ollama needs none.
func CredentialEnv(providerType string) []string {
	return append([]string(nil), credentialEnv[providerType]...)
}
