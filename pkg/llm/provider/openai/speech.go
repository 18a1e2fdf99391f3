package openai

import (
	"context"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

var formatMimeTypes = map[string]string{
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"pcm":  "audio/pcm",
}

// Speak synthesizes req.Text with the configured TTS model.
func (p *Provider) Speak(ctx context.Context, req *llm.SpeechRequest) (*llm.Audio, error) {
	headers, err := p.authHeaders()
	if err != nil {
		return nil, err
	}

	voice := req.Voice
	if voice == "" {
		voice = p.opts.Voice
	}

	resp, err := p.client.PostJSON(ctx, p.url("/audio/speech"), headers, speechRequest{
		Model:          p.opts.TTSModel,
		Voice:          voice,
		Input:          req.Text,
		ResponseFormat: p.opts.AudioFormat,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return nil, llm.NewEmptyResponseError(Name, "empty audio body", nil)
	}

	mimeType, ok := formatMimeTypes[p.opts.AudioFormat]
	if !ok {
		mimeType = resp.Header.Get("Content-Type")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &llm.Audio{Data: resp.Body, MimeType: mimeType}, nil
}
