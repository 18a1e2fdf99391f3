// Package googletts adapts the Google Cloud Text-to-Speech REST API.
package googletts

import (
	"context"
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/upstream"
)

const (
	Name = "google_tts"

	DefaultBaseURL  = "https://texttospeech.googleapis.com"
	DefaultLanguage = "en-US"
	DefaultVoice    = "en-US-Neural2-D"
)

type Options struct {
	APIKey   string
	BaseURL  string
	Language string
	Voice    string

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
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	return &Provider{opts: opts, client: upstream.New(Name, opts.HTTPClient, opts.Logger)}
}

func (p *Provider) Name() string {
	return Name
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Speak synthesizes MP3 audio. req.Voice, when set, is a Cloud TTS voice
// name such as en-GB-Neural2-B.
func (p *Provider) Speak(ctx context.Context, req *llm.SpeechRequest) (*llm.Audio, error) {
	if p.opts.APIKey == "" {
		return nil, llm.NewConfigError(Name, "GOOGLE_API_KEY is not set")
	}

	body := synthesizeRequest{}
	body.Input.Text = req.Text
	body.Voice.LanguageCode = p.opts.Language
	body.Voice.Name = p.opts.Voice
	if req.Voice != "" {
		body.Voice.Name = req.Voice
	}
	body.AudioConfig.AudioEncoding = "MP3"

	resp, err := p.client.PostJSON(ctx, p.opts.BaseURL+"/v1/text:synthesize",
		map[string]string{"X-Goog-Api-Key": p.opts.APIKey}, body)
	if err != nil {
		return nil, err
	}

	var parsed synthesizeResponse
	if err := p.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}
	if parsed.AudioContent == "" {
		return nil, llm.NewEmptyResponseError(Name, "no audioContent", resp.Body)
	}

	data, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, llm.NewMalformedError(Name, nil, err)
	}
	return &llm.Audio{Data: data, MimeType: "audio/mpeg"}, nil
}
