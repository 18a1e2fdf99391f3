// Package elevenlabs adapts the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/upstream"
)

const (
	Name = "elevenlabs"

	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultModel   = "eleven_multilingual_v2"

	// DefaultVoiceID is the "Rachel" premade voice.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	VoiceID string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Provider struct {
	opts   Options
	client *upstream.Client
}

func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.VoiceID == "" {
		opts.VoiceID = DefaultVoiceID
	}
	return &Provider{opts: opts, client: upstream.New(Name, opts.HTTPClient, opts.Logger)}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) headers() (map[string]string, error) {
	if p.opts.APIKey == "" {
		return nil, llm.NewConfigError(Name, "ELEVENLABS_API_KEY is not set")
	}
	return map[string]string{"xi-api-key": p.opts.APIKey}, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// Speak synthesizes req.Text. req.Voice, when set, is an ElevenLabs voice id.
func (p *Provider) Speak(ctx context.Context, req *llm.SpeechRequest) (*llm.Audio, error) {
	headers, err := p.headers()
	if err != nil {
		return nil, err
	}
	headers["Accept"] = "audio/mpeg"

	voice := req.Voice
	if voice == "" {
		voice = p.opts.VoiceID
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", p.opts.BaseURL, url.PathEscape(voice))
	resp, err := p.client.PostJSON(ctx, endpoint, headers, speechRequest{
		Text:          req.Text,
		ModelID:       p.opts.Model,
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, llm.NewEmptyResponseError(Name, "empty audio body", nil)
	}

	return &llm.Audio{Data: resp.Body, MimeType: "audio/mpeg"}, nil
}

// Model is one entry of the models listing.
type Model struct {
	ModelID     string `json:"model_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListModels returns the models available to the configured key.
func (p *Provider) ListModels(ctx context.Context) ([]Model, error) {
	headers, err := p.headers()
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Get(ctx, p.opts.BaseURL+"/v1/models", headers)
	if err != nil {
		return nil, err
	}

	var models []Model
	if err := p.client.DecodeJSON(resp, &models); err != nil {
		return nil, err
	}
	return models, nil
}
