package servecmder

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/config"
	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/elevenlabs"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/gemini"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/googletts"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/openai"
	"github.com/papercomputeco/genrelay/pkg/prompt"
	"github.com/papercomputeco/genrelay/pkg/search/google"
	"github.com/papercomputeco/genrelay/relay"
)

// KeyResolver looks up the API key for a provider. *credentials.Manager
// satisfies it.
type KeyResolver interface {
	Resolve(provider string) (key string, source string, err error)
}

// keyNames are the credential entries the relay consults.
var keyNames = []string{provider.OpenAI, provider.Gemini, provider.ElevenLabs, provider.GoogleTTS, "search"}

// resolveKeys loads every provider key once at startup. Missing keys are not
// an error here: the adapter reports a config error when it is used.
func resolveKeys(keys KeyResolver, logger *zap.Logger) (map[string]string, error) {
	out := make(map[string]string, len(keyNames))
	for _, name := range keyNames {
		key, source, err := keys.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s key: %w", name, err)
		}
		if key == "" {
			logger.Debug("no API key", zap.String("provider", name))
			continue
		}
		logger.Debug("using API key", zap.String("provider", name), zap.String("source", source))
		out[name] = key
	}
	return out, nil
}

// upstreamClient applies server.upstream_timeout: negative means no limit.
func upstreamClient(cfg *config.Config) *http.Client {
	timeout := cfg.Server.UpstreamTimeout
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{Timeout: timeout}
}

// newFactory maps configuration and keys onto adapter options.
func newFactory(cfg *config.Config, keys map[string]string, logger *zap.Logger) *provider.Factory {
	httpClient := upstreamClient(cfg)

	var grounder llm.Grounder
	if keys["search"] != "" && cfg.Search.EngineID != "" {
		grounder = google.New(google.Options{
			APIKey:     keys["search"],
			EngineID:   cfg.Search.EngineID,
			BaseURL:    cfg.Search.BaseURL,
			Results:    cfg.Search.Results,
			HTTPClient: httpClient,
			Logger:     logger.Named("search"),
		})
	} else if cfg.Chat.SearchGrounding {
		logger.Warn("chat.search_grounding is on but search.engine_id or the search key is missing; grounding disabled")
	}

	return &provider.Factory{
		OpenAI: openai.Options{
			APIKey:      keys[provider.OpenAI],
			BaseURL:     cfg.OpenAI.BaseURL,
			ChatModel:   cfg.OpenAI.ChatModel,
			TTSModel:    cfg.OpenAI.TTSModel,
			S2TModel:    cfg.OpenAI.S2TModel,
			ImageModel:  cfg.OpenAI.ImageModel,
			Voice:       cfg.OpenAI.Voice,
			AudioFormat: cfg.OpenAI.Format,
			Grounder:    grounder,
			HTTPClient:  httpClient,
			Logger:      logger.Named(provider.OpenAI),
		},
		Gemini: gemini.Options{
			APIKey:          keys[provider.Gemini],
			BaseURL:         cfg.Gemini.BaseURL,
			ChatModel:       cfg.Gemini.ChatModel,
			ImageModel:      cfg.Gemini.ImageModel,
			SafetyThreshold: cfg.Gemini.SafetyThreshold,
			HTTPClient:      httpClient,
			Logger:          logger.Named(provider.Gemini),
		},
		Bedrock: bedrock.Options{
			Region: cfg.Bedrock.Region,
			Model:  cfg.Bedrock.Model,
			Logger: logger.Named(provider.Bedrock),
		},
		ElevenLabs: elevenlabs.Options{
			APIKey:     keys[provider.ElevenLabs],
			BaseURL:    cfg.ElevenLabs.BaseURL,
			Model:      cfg.ElevenLabs.Model,
			VoiceID:    cfg.ElevenLabs.VoiceID,
			HTTPClient: httpClient,
			Logger:     logger.Named(provider.ElevenLabs),
		},
		GoogleTTS: googletts.Options{
			APIKey:     keys[provider.GoogleTTS],
			BaseURL:    cfg.GoogleTTS.BaseURL,
			Language:   cfg.GoogleTTS.Language,
			Voice:      cfg.GoogleTTS.Voice,
			HTTPClient: httpClient,
			Logger:     logger.Named(provider.GoogleTTS),
		},
	}
}

// buildProviders creates the adapters named in cfg. Every speech provider is
// built so clients can pick one per request.
func buildProviders(ctx context.Context, cfg *config.Config, f *provider.Factory, logger *zap.Logger) (relay.Providers, error) {
	var (
		p   relay.Providers
		err error
	)

	p.Chat, err = f.Chat(ctx, cfg.Chat.Provider)
	if err != nil {
		return p, err
	}

	p.Speech = make(map[string]provider.SpeechProvider, len(provider.SupportedSpeechProviders()))
	for _, name := range provider.SupportedSpeechProviders() {
		sp, err := f.Speech(name)
		if err != nil {
			return p, err
		}
		p.Speech[name] = provider.WithTruncation(sp, cfg.Speech.MaxChars, cfg.Speech.Backscan, logger)
	}
	p.DefaultSpeech = cfg.Speech.Provider

	p.Transcriber, err = f.Transcriber(cfg.Transcribe.Provider)
	if err != nil {
		return p, err
	}

	p.Image, err = f.Image(cfg.Image.Provider)
	if err != nil {
		return p, err
	}

	return p, nil
}

// relayConfig maps the server and chat sections onto relay.Config.
func relayConfig(cfg *config.Config) relay.Config {
	return relay.Config{
		ListenAddr:  cfg.Server.Listen,
		StaticDir:   cfg.Server.StaticDir,
		CORSOrigins: cfg.Server.CORSOrigins,

		HistoryLimit: cfg.Chat.HistoryLimit,
		Prompt: prompt.Options{
			Persona:  cfg.Chat.Persona,
			Override: cfg.Chat.SystemPrompt,
		},
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,

		ChatSearchGrounding:  cfg.Chat.SearchGrounding,
		ImageSearchGrounding: cfg.Image.SearchGrounding,
	}
}

// BuildRelay assembles a relay from configuration and keys.
func BuildRelay(ctx context.Context, cfg *config.Config, keys KeyResolver, logger *zap.Logger) (*relay.Relay, error) {
	resolved, err := resolveKeys(keys, logger)
	if err != nil {
		return nil, err
	}

	providers, err := buildProviders(ctx, cfg, newFactory(cfg, resolved, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}

	return relay.New(relayConfig(cfg), providers, logger.Named("relay")), nil
}
