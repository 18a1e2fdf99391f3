package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent genrelay configuration stored as
// config.toml in the .genrelay/ directory. The TOML layout uses sections for
// logical grouping; mapstructure tags let viper decode the same layout.
type Config struct {
	Version    int              `toml:"version" mapstructure:"version"`
	Server     ServerConfig     `toml:"server" mapstructure:"server"`
	Chat       ChatConfig       `toml:"chat" mapstructure:"chat"`
	Speech     SpeechConfig     `toml:"speech" mapstructure:"speech"`
	Transcribe TranscribeConfig `toml:"transcribe" mapstructure:"transcribe"`
	Image      ImageConfig      `toml:"image" mapstructure:"image"`
	OpenAI     OpenAIConfig     `toml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `toml:"gemini" mapstructure:"gemini"`
	Bedrock    BedrockConfig    `toml:"bedrock" mapstructure:"bedrock"`
	ElevenLabs ElevenLabsConfig `toml:"elevenlabs" mapstructure:"elevenlabs"`
	GoogleTTS  GoogleTTSConfig  `toml:"google_tts" mapstructure:"google_tts"`
	Search     SearchConfig     `toml:"search" mapstructure:"search"`
	Client     ClientConfig     `toml:"client" mapstructure:"client"`
}

// ServerConfig holds relay HTTP server settings.
type ServerConfig struct {
	Listen      string `toml:"listen,omitempty" mapstructure:"listen" validate:"required"`
	StaticDir   string `toml:"static_dir,omitempty" mapstructure:"static_dir"`
	CORSOrigins string `toml:"cors_origins,omitempty" mapstructure:"cors_origins"`

	// UpstreamTimeout bounds each provider call. A negative value disables
	// the timeout.
	UpstreamTimeout time.Duration `toml:"upstream_timeout,omitempty" mapstructure:"upstream_timeout"`
}

// ChatConfig selects the chat provider and shapes chat requests.
type ChatConfig struct {
	Provider        string   `toml:"provider,omitempty" mapstructure:"provider" validate:"oneof=openai gemini bedrock"`
	Persona         string   `toml:"persona,omitempty" mapstructure:"persona" validate:"omitempty,oneof=storyforge helper none"`
	SystemPrompt    string   `toml:"system_prompt,omitempty" mapstructure:"system_prompt"`
	HistoryLimit    int      `toml:"history_limit,omitempty" mapstructure:"history_limit"`
	Temperature     *float64 `toml:"temperature,omitempty" mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens       *int     `toml:"max_tokens,omitempty" mapstructure:"max_tokens" validate:"omitempty,gt=0"`
	SearchGrounding bool     `toml:"search_grounding,omitempty" mapstructure:"search_grounding"`
}

// SpeechConfig selects the text-to-speech provider. A Backscan of zero
// uses the default window and a negative one always hard-cuts.
type SpeechConfig struct {
	Provider string `toml:"provider,omitempty" mapstructure:"provider" validate:"oneof=openai elevenlabs google_tts"`
	MaxChars int    `toml:"max_chars,omitempty" mapstructure:"max_chars"`
	Backscan int    `toml:"backscan,omitempty" mapstructure:"backscan"`
}

// TranscribeConfig selects the speech-to-text provider.
type TranscribeConfig struct {
	Provider string `toml:"provider,omitempty" mapstructure:"provider" validate:"oneof=openai"`
}

// ImageConfig selects the image provider.
type ImageConfig struct {
	Provider        string `toml:"provider,omitempty" mapstructure:"provider" validate:"oneof=gemini openai"`
	SearchGrounding bool   `toml:"search_grounding,omitempty" mapstructure:"search_grounding"`
}

type OpenAIConfig struct {
	BaseURL    string `toml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	ChatModel  string `toml:"chat_model,omitempty" mapstructure:"chat_model"`
	TTSModel   string `toml:"tts_model,omitempty" mapstructure:"tts_model"`
	S2TModel   string `toml:"s2t_model,omitempty" mapstructure:"s2t_model"`
	ImageModel string `toml:"image_model,omitempty" mapstructure:"image_model"`
	Voice      string `toml:"voice,omitempty" mapstructure:"voice"`
	Format     string `toml:"format,omitempty" mapstructure:"format" validate:"omitempty,oneof=wav mp3 opus aac flac pcm"`
}

type GeminiConfig struct {
	BaseURL         string `toml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	ChatModel       string `toml:"chat_model,omitempty" mapstructure:"chat_model"`
	ImageModel      string `toml:"image_model,omitempty" mapstructure:"image_model"`
	SafetyThreshold string `toml:"safety_threshold,omitempty" mapstructure:"safety_threshold" validate:"omitempty,oneof=BLOCK_NONE BLOCK_ONLY_HIGH BLOCK_MEDIUM_AND_ABOVE BLOCK_LOW_AND_ABOVE OFF"`
}

type BedrockConfig struct {
	Region string `toml:"region,omitempty" mapstructure:"region"`
	Model  string `toml:"model,omitempty" mapstructure:"model"`
}

type ElevenLabsConfig struct {
	BaseURL string `toml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	VoiceID string `toml:"voice_id,omitempty" mapstructure:"voice_id"`
	Model   string `toml:"model,omitempty" mapstructure:"model"`
}

type GoogleTTSConfig struct {
	BaseURL  string `toml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Language string `toml:"language,omitempty" mapstructure:"language"`
	Voice    string `toml:"voice,omitempty" mapstructure:"voice"`
}

// SearchConfig holds Google Custom Search settings used for grounding.
type SearchConfig struct {
	BaseURL  string `toml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	EngineID string `toml:"engine_id,omitempty" mapstructure:"engine_id"`
	Results  int    `toml:"results,omitempty" mapstructure:"results" validate:"gte=0,lte=10"`
}

// ClientConfig holds settings for CLI commands that talk to a running relay
// (e.g. genrelay chat). Values are full URLs.
type ClientConfig struct {
	Target string `toml:"target,omitempty" mapstructure:"target"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":       stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.static_dir":   stringKey(func(c *Config) *string { return &c.Server.StaticDir }),
	"server.cors_origins": stringKey(func(c *Config) *string { return &c.Server.CORSOrigins }),
	"server.upstream_timeout": {
		get: func(c *Config) string { return c.Server.UpstreamTimeout.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for server.upstream_timeout: %w", err)
			}
			c.Server.UpstreamTimeout = d
			return nil
		},
	},

	"chat.provider":         stringKey(func(c *Config) *string { return &c.Chat.Provider }),
	"chat.persona":          stringKey(func(c *Config) *string { return &c.Chat.Persona }),
	"chat.system_prompt":    stringKey(func(c *Config) *string { return &c.Chat.SystemPrompt }),
	"chat.history_limit":    intKey("chat.history_limit", func(c *Config) *int { return &c.Chat.HistoryLimit }),
	"chat.search_grounding": boolKey("chat.search_grounding", func(c *Config) *bool { return &c.Chat.SearchGrounding }),
	"chat.temperature": {
		get: func(c *Config) string {
			if c.Chat.Temperature == nil {
				return ""
			}
			return strconv.FormatFloat(*c.Chat.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Chat.Temperature = nil
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for chat.temperature: %w", err)
			}
			c.Chat.Temperature = &f
			return nil
		},
	},
	"chat.max_tokens": {
		get: func(c *Config) string {
			if c.Chat.MaxTokens == nil {
				return ""
			}
			return strconv.Itoa(*c.Chat.MaxTokens)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Chat.MaxTokens = nil
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chat.max_tokens: %w", err)
			}
			c.Chat.MaxTokens = &n
			return nil
		},
	},

	"speech.provider":  stringKey(func(c *Config) *string { return &c.Speech.Provider }),
	"speech.max_chars": intKey("speech.max_chars", func(c *Config) *int { return &c.Speech.MaxChars }),
	"speech.backscan":  intKey("speech.backscan", func(c *Config) *int { return &c.Speech.Backscan }),

	"transcribe.provider": stringKey(func(c *Config) *string { return &c.Transcribe.Provider }),

	"image.provider":         stringKey(func(c *Config) *string { return &c.Image.Provider }),
	"image.search_grounding": boolKey("image.search_grounding", func(c *Config) *bool { return &c.Image.SearchGrounding }),

	"openai.base_url":    stringKey(func(c *Config) *string { return &c.OpenAI.BaseURL }),
	"openai.chat_model":  stringKey(func(c *Config) *string { return &c.OpenAI.ChatModel }),
	"openai.tts_model":   stringKey(func(c *Config) *string { return &c.OpenAI.TTSModel }),
	"openai.s2t_model":   stringKey(func(c *Config) *string { return &c.OpenAI.S2TModel }),
	"openai.image_model": stringKey(func(c *Config) *string { return &c.OpenAI.ImageModel }),
	"openai.voice":       stringKey(func(c *Config) *string { return &c.OpenAI.Voice }),
	"openai.format":      stringKey(func(c *Config) *string { return &c.OpenAI.Format }),

	"gemini.base_url":         stringKey(func(c *Config) *string { return &c.Gemini.BaseURL }),
	"gemini.chat_model":       stringKey(func(c *Config) *string { return &c.Gemini.ChatModel }),
	"gemini.image_model":      stringKey(func(c *Config) *string { return &c.Gemini.ImageModel }),
	"gemini.safety_threshold": stringKey(func(c *Config) *string { return &c.Gemini.SafetyThreshold }),

	"bedrock.region": stringKey(func(c *Config) *string { return &c.Bedrock.Region }),
	"bedrock.model":  stringKey(func(c *Config) *string { return &c.Bedrock.Model }),

	"elevenlabs.base_url": stringKey(func(c *Config) *string { return &c.ElevenLabs.BaseURL }),
	"elevenlabs.voice_id": stringKey(func(c *Config) *string { return &c.ElevenLabs.VoiceID }),
	"elevenlabs.model":    stringKey(func(c *Config) *string { return &c.ElevenLabs.Model }),

	"google_tts.base_url": stringKey(func(c *Config) *string { return &c.GoogleTTS.BaseURL }),
	"google_tts.language": stringKey(func(c *Config) *string { return &c.GoogleTTS.Language }),
	"google_tts.voice":    stringKey(func(c *Config) *string { return &c.GoogleTTS.Voice }),

	"search.base_url":  stringKey(func(c *Config) *string { return &c.Search.BaseURL }),
	"search.engine_id": stringKey(func(c *Config) *string { return &c.Search.EngineID }),
	"search.results":   intKey("search.results", func(c *Config) *int { return &c.Search.Results }),

	"client.target": stringKey(func(c *Config) *string { return &c.Client.Target }),
}
