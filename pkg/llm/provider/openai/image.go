package openai

import (
	"context"
	"encoding/base64"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

// GenerateImage creates one image from a text prompt. Reference images are
// not supported by the generations endpoint.
func (p *Provider) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.Image, error) {
	if len(req.References) > 0 {
		return nil, llm.NewValidationError("reference images are not supported by the openai image provider")
	}

	headers, err := p.authHeaders()
	if err != nil {
		return nil, err
	}

	resp, err := p.client.PostJSON(ctx, p.url("/images/generations"), headers, imageRequest{
		Model:  p.opts.ImageModel,
		Prompt: req.Prompt,
		N:      1,
	})
	if err != nil {
		return nil, err
	}

	var parsed imageResponse
	if err := p.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, llm.NewEmptyResponseError(Name, "no image data", resp.Body)
	}

	first := parsed.Data[0]
	switch {
	case first.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, llm.NewMalformedError(Name, nil, err)
		}
		return &llm.Image{Data: data, MimeType: "image/png"}, nil
	case first.URL != "":
		return &llm.Image{URL: first.URL}, nil
	default:
		return nil, llm.NewEmptyResponseError(Name, "image entry has neither b64_json nor url", resp.Body)
	}
}
