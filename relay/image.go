package relay

import (
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

func (r *Relay) generate(c *fiber.Ctx, req *llm.ImageRequest) (*llm.Image, error) {
	ip := r.providers.Image
	if ip == nil {
		return nil, llm.NewConfigError("", "no image provider configured")
	}
	req.SearchGrounding = r.config.ImageSearchGrounding
	return ip.GenerateImage(c.UserContext(), req)
}

// imageRequest parses the shared JSON payload. Reference images are
// optional here; /image-edit enforces them separately.
func imageRequest(c *fiber.Ctx) (*llm.ImageRequest, error) {
	var body imageBodyIn
	if err := parseJSON(c, &body); err != nil {
		return nil, err
	}
	body.Prompt = strings.TrimSpace(body.Prompt)
	if err := check(&body); err != nil {
		return nil, err
	}

	refs, err := decodeImages(body.Images)
	if err != nil {
		return nil, err
	}
	return &llm.ImageRequest{Prompt: body.Prompt, References: refs}, nil
}

func (r *Relay) handleGenerateImage(c *fiber.Ctx) error {
	req, err := imageRequest(c)
	if err != nil {
		return r.fail(c, err)
	}

	img, err := r.generate(c, req)
	if err != nil {
		return r.fail(c, err)
	}
	return replyImage(c, img)
}

func (r *Relay) handleImageEdit(c *fiber.Ctx) error {
	var body editBodyIn
	if err := parseJSON(c, &body); err != nil {
		return r.fail(c, err)
	}
	body.Prompt = strings.TrimSpace(body.Prompt)
	if err := check(&body); err != nil {
		return r.fail(c, err)
	}

	refs, err := decodeImages(body.Images)
	if err != nil {
		return r.fail(c, err)
	}

	img, err := r.generate(c, &llm.ImageRequest{Prompt: body.Prompt, References: refs})
	if err != nil {
		return r.fail(c, err)
	}
	return replyImage(c, img)
}

func (r *Relay) handleImageURL(c *fiber.Ctx) error {
	req, err := imageRequest(c)
	if err != nil {
		return r.fail(c, err)
	}

	img, err := r.generate(c, req)
	if err != nil {
		return r.fail(c, err)
	}
	return replyImageURL(c, img)
}

// handleAnalyze takes a multipart upload: the image under "file" and the
// instruction under "prompt".
func (r *Relay) handleAnalyze(c *fiber.Ctx) error {
	form := analyzeForm{Prompt: strings.TrimSpace(c.FormValue("prompt"))}
	if err := check(&form); err != nil {
		return r.fail(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil || fh.Size == 0 {
		return r.fail(c, llm.NewValidationError("At least one reference image is required"))
	}

	f, err := fh.Open()
	if err != nil {
		return r.fail(c, llm.NewValidationError("Image file is unreadable"))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return r.fail(c, llm.NewValidationError("Image file is unreadable"))
	}

	mimeType := fh.Header.Get(fiber.HeaderContentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	img, err := r.generate(c, &llm.ImageRequest{
		Prompt:     form.Prompt,
		References: []llm.ReferenceImage{{Data: data, MimeType: mimeType}},
	})
	if err != nil {
		return r.fail(c, err)
	}
	return replyImage(c, img)
}
