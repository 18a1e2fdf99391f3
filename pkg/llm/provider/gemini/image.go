package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

var imageModalities = []string{"TEXT", "IMAGE"}

// GenerateImage produces one image from the prompt and any reference
// images. When search grounding is requested and the model rejects the
// tool, the request is retried exactly once without it.
func (p *Provider) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.Image, error) {
	parts := make([]part, 0, len(req.References)+1)
	parts = append(parts, part{Text: req.Prompt})
	for _, ref := range req.References {
		mimeType := ref.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}

	body := &generateContentRequest{
		Contents:         []content{{Role: roleUser, Parts: parts}},
		GenerationConfig: &generationConfig{ResponseModalities: imageModalities},
		SafetySettings:   p.safetySettings(),
	}
	if req.SearchGrounding {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	img, err := p.generateImage(ctx, body)
	if err == nil || len(body.Tools) == 0 || !isCapabilityError(err) {
		return img, err
	}

	p.client.Logger().Warn("image model rejected search tool, retrying without it", zap.Error(err))

	body.Tools = nil
	return p.generateImage(ctx, body)
}

func (p *Provider) generateImage(ctx context.Context, body *generateContentRequest) (*llm.Image, error) {
	resp, raw, err := p.generate(ctx, p.opts.ImageModel, body)
	if err != nil {
		if len(body.Tools) > 0 && mentionsTool(err) {
			e, _ := llm.AsError(err)
			e.Kind = llm.ErrUnsupportedCapability
		}
		return nil, err
	}

	out := classify(resp)
	switch out.kind {
	case outcomeImage:
		data, err := base64.StdEncoding.DecodeString(out.image.Data)
		if err != nil {
			return nil, llm.NewMalformedError(Name, raw, err)
		}
		return &llm.Image{Data: data, MimeType: out.image.MimeType}, nil
	case outcomeText:
		return nil, llm.NewEmptyResponseError(Name, "no image returned: "+out.text, raw)
	case outcomeBlocked, outcomeEmpty:
		return nil, llm.NewEmptyResponseError(Name, out.detail, raw)
	case outcomeMalformed:
		return nil, llm.NewMalformedError(Name, raw, nil)
	default:
		return nil, llm.NewMalformedError(Name, raw, nil)
	}
}

func isCapabilityError(err error) bool {
	return llm.IsKind(err, llm.ErrUnsupportedCapability)
}

// mentionsTool reports whether err is a 400 whose message complains about
// the search tool.
func mentionsTool(err error) bool {
	e, ok := llm.AsError(err)
	if !ok || e.Kind != llm.ErrUpstream || e.Status != 400 {
		return false
	}

	msg := string(e.Raw)
	var envelope errorResponse
	if json.Unmarshal(e.Raw, &envelope) == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	msg = strings.ToLower(msg)
	for _, needle := range []string{"search", "grounding", "tool"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
