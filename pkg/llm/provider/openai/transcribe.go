package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

// Transcribe uploads one audio clip to the transcription endpoint.
func (p *Provider) Transcribe(ctx context.Context, req *llm.TranscriptionRequest) (*llm.Reply, error) {
	if len(req.Audio) == 0 {
		return nil, llm.NewValidationError("Audio file is required")
	}

	headers, err := p.authHeaders()
	if err != nil {
		return nil, err
	}

	filename := req.Filename
	if filename == "" {
		filename = DefaultFilename
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", p.opts.S2TModel); err != nil {
		return nil, fmt.Errorf("writing model field: %w", err)
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if req.MimeType != "" {
		partHeader.Set("Content-Type", req.MimeType)
	} else {
		partHeader.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url("/audio/transcriptions"), &body)
	if err != nil {
		return nil, fmt.Errorf("creating transcription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	var parsed transcriptionResponse
	if err := p.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}
	if parsed.Text == nil {
		return nil, llm.NewMalformedError(Name, resp.Body, nil)
	}

	return &llm.Reply{Text: *parsed.Text, Model: p.opts.S2TModel}, nil
}
