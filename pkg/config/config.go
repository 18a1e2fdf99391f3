package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/genrelay/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// keyOrder is the stable listing order, matching the TOML section layout.
var keyOrder = []string{
	"server.listen",
	"server.static_dir",
	"server.cors_origins",
	"server.upstream_timeout",
	"chat.provider",
	"chat.persona",
	"chat.system_prompt",
	"chat.history_limit",
	"chat.temperature",
	"chat.max_tokens",
	"chat.search_grounding",
	"speech.provider",
	"speech.max_chars",
	"speech.backscan",
	"transcribe.provider",
	"image.provider",
	"image.search_grounding",
	"openai.base_url",
	"openai.chat_model",
	"openai.tts_model",
	"openai.s2t_model",
	"openai.image_model",
	"openai.voice",
	"openai.format",
	"gemini.base_url",
	"gemini.chat_model",
	"gemini.image_model",
	"gemini.safety_threshold",
	"bedrock.region",
	"bedrock.model",
	"elevenlabs.base_url",
	"elevenlabs.voice_id",
	"elevenlabs.model",
	"google_tts.base_url",
	"google_tts.language",
	"google_tts.voice",
	"search.base_url",
	"search.engine_id",
	"search.results",
	"client.target",
}

// ValidConfigKeys returns the list of all supported configuration key names
// in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range keyOrder {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range configKeys {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	return append(result, rest...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .genrelay/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always
// receive a fully-populated Config. Fields set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fillString(&cfg.Server.Listen, d.Server.Listen)
	fillString(&cfg.Server.CORSOrigins, d.Server.CORSOrigins)
	if cfg.Server.UpstreamTimeout == 0 {
		cfg.Server.UpstreamTimeout = d.Server.UpstreamTimeout
	}

	fillString(&cfg.Chat.Provider, d.Chat.Provider)
	fillString(&cfg.Chat.Persona, d.Chat.Persona)
	fillInt(&cfg.Chat.HistoryLimit, d.Chat.HistoryLimit)

	fillString(&cfg.Speech.Provider, d.Speech.Provider)
	fillInt(&cfg.Speech.MaxChars, d.Speech.MaxChars)
	fillInt(&cfg.Speech.Backscan, d.Speech.Backscan)

	fillString(&cfg.Transcribe.Provider, d.Transcribe.Provider)
	fillString(&cfg.Image.Provider, d.Image.Provider)

	fillString(&cfg.OpenAI.BaseURL, d.OpenAI.BaseURL)
	fillString(&cfg.OpenAI.ChatModel, d.OpenAI.ChatModel)
	fillString(&cfg.OpenAI.TTSModel, d.OpenAI.TTSModel)
	fillString(&cfg.OpenAI.S2TModel, d.OpenAI.S2TModel)
	fillString(&cfg.OpenAI.ImageModel, d.OpenAI.ImageModel)
	fillString(&cfg.OpenAI.Voice, d.OpenAI.Voice)
	fillString(&cfg.OpenAI.Format, d.OpenAI.Format)

	fillString(&cfg.Gemini.BaseURL, d.Gemini.BaseURL)
	fillString(&cfg.Gemini.ChatModel, d.Gemini.ChatModel)
	fillString(&cfg.Gemini.ImageModel, d.Gemini.ImageModel)
	fillString(&cfg.Gemini.SafetyThreshold, d.Gemini.SafetyThreshold)

	fillString(&cfg.Bedrock.Region, d.Bedrock.Region)
	fillString(&cfg.Bedrock.Model, d.Bedrock.Model)

	fillString(&cfg.ElevenLabs.BaseURL, d.ElevenLabs.BaseURL)
	fillString(&cfg.ElevenLabs.VoiceID, d.ElevenLabs.VoiceID)
	fillString(&cfg.ElevenLabs.Model, d.ElevenLabs.Model)

	fillString(&cfg.GoogleTTS.BaseURL, d.GoogleTTS.BaseURL)
	fillString(&cfg.GoogleTTS.Language, d.GoogleTTS.Language)
	fillString(&cfg.GoogleTTS.Voice, d.GoogleTTS.Voice)

	fillString(&cfg.Search.BaseURL, d.Search.BaseURL)
	fillInt(&cfg.Search.Results, d.Search.Results)

	fillString(&cfg.Client.Target, d.Client.Target)
}

// SaveConfig persists the configuration to config.toml in the target .genrelay/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value,
// validates the result and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a default Config with every capability pointed at
// the named provider stack.
// Supported presets: "openai", "gemini", "bedrock".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.Chat.Provider = "openai"
		cfg.Image.Provider = "openai"
		cfg.Speech.Provider = "openai"

	case "gemini":
		cfg.Chat.Provider = "gemini"
		cfg.Image.Provider = "gemini"
		cfg.Speech.Provider = "google_tts"

	case "bedrock":
		cfg.Chat.Provider = "bedrock"
		cfg.Chat.Persona = "helper"

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "gemini", "bedrock"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
