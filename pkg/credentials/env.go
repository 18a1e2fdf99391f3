package credentials

import (
	"os"
	"slices"
)

// envVars lists, per provider, the environment variables that can carry its
// key. The provider-specific name comes first; GOOGLE_API_KEY is the shared
// fallback for every Google service.
var envVars = map[string][]string{
	"openai":     {"OPENAI_API_KEY"},
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"elevenlabs": {"ELEVENLABS_API_KEY"},
	"google_tts": {"GOOGLE_TTS_API_KEY", "GOOGLE_API_KEY"},
	"search":     {"GOOGLE_SEARCH_API_KEY", "GOOGLE_API_KEY"},
}

// SupportedProviders returns the providers that authenticate with an API key.
// Bedrock is absent: it authenticates through the AWS credential chain.
func SupportedProviders() []string {
	return []string{"openai", "gemini", "elevenlabs", "google_tts", "search"}
}

func IsSupportedProvider(provider string) bool {
	_, ok := envVars[provider]
	return ok
}

// EnvVarForProvider returns the provider-specific variable name, or "" for
// unknown providers.
func EnvVarForProvider(provider string) string {
	if names := envVars[provider]; len(names) > 0 {
		return names[0]
	}
	return ""
}

// EnvVarsForProvider returns every variable consulted for provider, in
// lookup order.
func EnvVarsForProvider(provider string) []string {
	return slices.Clone(envVars[provider])
}

// fromEnv returns the first non-empty variable for provider and its name.
func fromEnv(provider string) (string, string) {
	for _, name := range envVars[provider] {
		if v := os.Getenv(name); v != "" {
			return v, name
		}
	}
	return "", ""
}
