package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/genrelay/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. GENRELAY_CHAT_PROVIDER.
const EnvPrefix = "GENRELAY"

// legacyEnv lists the unprefixed variable names earlier deployments used.
// The prefixed name still wins when both are set.
var legacyEnv = map[string][]string{
	"server.listen":       {"PORT"},
	"server.cors_origins": {"CORS_ORIGINS"},
	"openai.chat_model":   {"MODEL"},
	"openai.s2t_model":    {"S2T_MODEL"},
	"openai.tts_model":    {"TTS_MODEL"},
	"gemini.chat_model":   {"GEMINI_MODEL"},
	"search.engine_id":    {"GOOGLE_CSE_ID"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the GENRELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (GENRELAY_SERVER_LISTEN, PORT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound.
	_ = v.BindEnv("chat.temperature")
	_ = v.BindEnv("chat.max_tokens")

	for key, names := range legacyEnv {
		envs := append([]string{envName(key)}, names...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	return v, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// FromViper decodes the merged viper state into a validated Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyDefaults(cfg)
	cfg.Server.Listen = normalizeListen(cfg.Server.Listen)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeListen turns a bare port such as "3000" into ":3000".
func normalizeListen(listen string) string {
	if listen == "" || strings.Contains(listen, ":") {
		return listen
	}
	for _, r := range listen {
		if r < '0' || r > '9' {
			return listen
		}
	}
	return ":" + listen
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.upstream_timeout", d.Server.UpstreamTimeout)

	v.SetDefault("chat.provider", d.Chat.Provider)
	v.SetDefault("chat.persona", d.Chat.Persona)
	v.SetDefault("chat.system_prompt", d.Chat.SystemPrompt)
	v.SetDefault("chat.history_limit", d.Chat.HistoryLimit)
	v.SetDefault("chat.search_grounding", d.Chat.SearchGrounding)

	v.SetDefault("speech.provider", d.Speech.Provider)
	v.SetDefault("speech.max_chars", d.Speech.MaxChars)
	v.SetDefault("speech.backscan", d.Speech.Backscan)

	v.SetDefault("transcribe.provider", d.Transcribe.Provider)

	v.SetDefault("image.provider", d.Image.Provider)
	v.SetDefault("image.search_grounding", d.Image.SearchGrounding)

	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.chat_model", d.OpenAI.ChatModel)
	v.SetDefault("openai.tts_model", d.OpenAI.TTSModel)
	v.SetDefault("openai.s2t_model", d.OpenAI.S2TModel)
	v.SetDefault("openai.image_model", d.OpenAI.ImageModel)
	v.SetDefault("openai.voice", d.OpenAI.Voice)
	v.SetDefault("openai.format", d.OpenAI.Format)

	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.chat_model", d.Gemini.ChatModel)
	v.SetDefault("gemini.image_model", d.Gemini.ImageModel)
	v.SetDefault("gemini.safety_threshold", d.Gemini.SafetyThreshold)

	v.SetDefault("bedrock.region", d.Bedrock.Region)
	v.SetDefault("bedrock.model", d.Bedrock.Model)

	v.SetDefault("elevenlabs.base_url", d.ElevenLabs.BaseURL)
	v.SetDefault("elevenlabs.voice_id", d.ElevenLabs.VoiceID)
	v.SetDefault("elevenlabs.model", d.ElevenLabs.Model)

	v.SetDefault("google_tts.base_url", d.GoogleTTS.BaseURL)
	v.SetDefault("google_tts.language", d.GoogleTTS.Language)
	v.SetDefault("google_tts.voice", d.GoogleTTS.Voice)

	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("search.engine_id", d.Search.EngineID)
	v.SetDefault("search.results", d.Search.Results)

	v.SetDefault("client.target", d.Client.Target)
}
