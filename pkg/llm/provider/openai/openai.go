// Package openai adapts OpenAI's chat completions, speech, transcription
// and image generation APIs.
package openai

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/upstream"
)

const (
	Name = "openai"

	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4.1-nano"
	DefaultTTSModel    = "gpt-4o-mini-tts"
	DefaultS2TModel    = "whisper-1"
	DefaultImageModel  = "gpt-image-1"
	DefaultVoice       = "alloy"
	DefaultAudioFormat = "wav"
	DefaultFilename    = "speech.webm"
)

// Options configures the OpenAI adapter. Zero values fall back to the
// package defaults.
type Options struct {
	APIKey  string
	BaseURL string

	ChatModel  string
	TTSModel   string
	S2TModel   string
	ImageModel string

	Voice       string
	AudioFormat string

	// Grounder, when set, supplies web search context for chat requests
	// that ask for grounding.
	Grounder llm.Grounder

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Provider talks to the OpenAI REST API.
type Provider struct {
	opts   Options
	client *upstream.Client
}

// New creates an OpenAI adapter.
func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.TTSModel == "" {
		opts.TTSModel = DefaultTTSModel
	}
	if opts.S2TModel == "" {
		opts.S2TModel = DefaultS2TModel
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = DefaultAudioFormat
	}

	return &Provider{
		opts:   opts,
		client: upstream.New(Name, opts.HTTPClient, opts.Logger),
	}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) authHeaders() (map[string]string, error) {
	if p.opts.APIKey == "" {
		return nil, llm.NewConfigError(Name, "OPENAI_API_KEY is not set")
	}
	return map[string]string{"Authorization": "Bearer " + p.opts.APIKey}, nil
}

func (p *Provider) url(path string) string {
	return p.opts.BaseURL + path
}
