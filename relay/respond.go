package relay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/utils"
)

// rawLogLimit bounds how much of an upstream body reaches the log.
const rawLogLimit = 1024

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an adapter failure to the status the client sees.
func statusFor(err error) int {
	e, ok := llm.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch e.Kind {
	case llm.ErrValidation:
		return http.StatusBadRequest
	case llm.ErrUpstream, llm.ErrUnavailable, llm.ErrMalformed, llm.ErrUnsupportedCapability:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bodyFor builds the client-facing error. Raw upstream bodies never leave
// the server.
func bodyFor(err error) errorBody {
	e, ok := llm.AsError(err)
	if !ok {
		return errorBody{Error: "Internal server error"}
	}

	switch e.Kind {
	case llm.ErrValidation:
		return errorBody{Error: e.Message}
	case llm.ErrEmptyResponse:
		details := e.Detail
		if details == "" {
			details = "the provider returned no usable content"
		}
		return errorBody{Error: "Empty response from " + providerLabel(e), Details: details}
	case llm.ErrUpstream, llm.ErrUnsupportedCapability:
		body := errorBody{Error: "Upstream request to " + providerLabel(e) + " failed"}
		if e.Status != 0 {
			body.Details = fmt.Sprintf("status %d", e.Status)
		}
		return body
	case llm.ErrUnavailable:
		return errorBody{Error: providerLabel(e) + " is unreachable"}
	case llm.ErrMalformed:
		return errorBody{Error: "Unrecognized response from " + providerLabel(e)}
	case llm.ErrConfig:
		return errorBody{Error: "Server misconfigured", Details: e.Message}
	default:
		return errorBody{Error: "Internal server error"}
	}
}

func providerLabel(e *llm.Error) string {
	if e.Provider == "" {
		return "provider"
	}
	return e.Provider
}

// fail logs err and writes the matching error response.
func (r *Relay) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("request_id", requestID(c)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if e, ok := llm.AsError(err); ok {
		fields = append(fields, zap.String("kind", e.Kind.String()))
		if e.Provider != "" {
			fields = append(fields, zap.String("provider", e.Provider))
		}
		if e.Status != 0 {
			fields = append(fields, zap.Int("upstream_status", e.Status))
		}
		if len(e.Raw) > 0 {
			fields = append(fields, zap.String("raw", utils.Truncate(string(e.Raw), rawLogLimit)))
		}
	}

	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", fields...)
	} else {
		r.logger.Debug("request rejected", fields...)
	}

	return c.Status(status).JSON(bodyFor(err))
}

// handleFiberError converts errors fiber raises itself (unknown route, body
// too large, panics caught by recover) into the same JSON shape.
func (r *Relay) handleFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
	}
	return r.fail(c, err)
}

// replyAudio writes synthesized speech as the raw body.
func replyAudio(c *fiber.Ctx, audio *llm.Audio) error {
	mimeType := audio.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, mimeType)
	return c.Status(fiber.StatusOK).Send(audio.Data)
}

// imageBody is the JSON shape of /generate-image, /image-edit and
// /api/analyze.
type imageBody struct {
	ImageB64 string `json:"image_b64,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func replyImage(c *fiber.Ctx, img *llm.Image) error {
	if len(img.Data) == 0 {
		return c.JSON(imageBody{ImageURL: img.URL})
	}
	return c.JSON(imageBody{
		ImageB64: base64.StdEncoding.EncodeToString(img.Data),
		MimeType: imageMimeType(img),
	})
}

// replyImageURL answers with a URL only, turning bytes into a data URL.
func replyImageURL(c *fiber.Ctx, img *llm.Image) error {
	if len(img.Data) == 0 {
		return c.JSON(imageBody{ImageURL: img.URL})
	}
	url := "data:" + imageMimeType(img) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	return c.JSON(imageBody{ImageURL: url})
}

func imageMimeType(img *llm.Image) string {
	if img.MimeType != "" {
		return img.MimeType
	}
	return http.DetectContentType(img.Data)
}
