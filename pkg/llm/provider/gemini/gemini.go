// Package gemini adapts Google's Gemini generateContent API for chat and
// image generation.
package gemini

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
	Name = "gemini"

	DefaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	DefaultChatModel       = "gemini-2.0-flash"
	DefaultImageModel      = "gemini-2.5-flash-image"
	DefaultSafetyThreshold = "BLOCK_ONLY_HIGH"
)

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Options configures the Gemini adapter.
type Options struct {
	APIKey  string
	BaseURL string

	ChatModel  string
	ImageModel string

	// SafetyThreshold applies to every harm category, e.g. BLOCK_ONLY_HIGH.
	SafetyThreshold string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Provider talks to the Gemini REST API.
type Provider struct {
	opts   Options
	client *upstream.Client
}

func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.SafetyThreshold == "" {
		opts.SafetyThreshold = DefaultSafetyThreshold
	}

	return &Provider{
		opts:   opts,
		client: upstream.New(Name, opts.HTTPClient, opts.Logger),
	}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) safetySettings() []safetySetting {
	settings := make([]safetySetting, 0, len(harmCategories))
	for _, c := range harmCategories {
		settings = append(settings, safetySetting{Category: c, Threshold: p.opts.SafetyThreshold})
	}
	return settings
}

// generate POSTs one generateContent request and decodes the envelope.
func (p *Provider) generate(ctx context.Context, model string, req *generateContentRequest) (*generateContentResponse, []byte, error) {
	if p.opts.APIKey == "" {
		return nil, nil, llm.NewConfigError(Name, "GEMINI_API_KEY is not set")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.opts.BaseURL, url.PathEscape(model))
	resp, err := p.client.PostJSON(ctx, endpoint, map[string]string{"x-goog-api-key": p.opts.APIKey}, req)
	if err != nil {
		return nil, nil, err
	}

	var parsed generateContentResponse
	if err := p.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, nil, err
	}
	return &parsed, resp.Body, nil
}
