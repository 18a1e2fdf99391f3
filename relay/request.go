package relay

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

var validate = validator.New()

// chatBody is the POST /chat payload.
type chatBody struct {
	Message string           `json:"message"`
	History []llm.ClientTurn `json:"history"`
	Genre   string           `json:"genre"`
}

// speechBody is the POST /speech payload.
type speechBody struct {
	Text     string `json:"text" validate:"required" msg:"Text is required"`
	Voice    string `json:"voice"`
	Provider string `json:"provider"`
}

// imageBodyIn is the JSON payload of the image endpoints.
type imageBodyIn struct {
	Prompt string       `json:"prompt" validate:"required" msg:"Prompt is required"`
	Images []imageInput `json:"images"`
}

// editBodyIn is imageBodyIn with references made mandatory.
type editBodyIn struct {
	Prompt string       `json:"prompt" validate:"required" msg:"Prompt is required"`
	Images []imageInput `json:"images" validate:"min=1" msg:"At least one reference image is required"`
}

// analyzeForm is the multipart payload of /api/analyze.
type analyzeForm struct {
	Prompt string `form:"prompt" validate:"required" msg:"Prompt is required"`
}

// parseJSON decodes the body into out. Text fields are expected to be
// trimmed by the caller before check runs.
func parseJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return llm.NewValidationError("Request body must be valid JSON")
	}
	return nil
}

// check validates v and reports the msg tag of the first failing field.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return llm.NewValidationError("Invalid request")
	}

	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(verrs[0].StructField()); ok {
		if msg := f.Tag.Get("msg"); msg != "" {
			return llm.NewValidationError(msg)
		}
	}
	return llm.NewValidationError(verrs[0].Field() + " is invalid")
}

// imageInput is one reference image. Clients send data URLs, bare base64
// strings or {data, mimeType} objects.
type imageInput struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

func (i *imageInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i.Data = s
		return nil
	}

	type plain imageInput
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*i = imageInput(obj)
	return nil
}

// decode resolves the input into raw bytes and a MIME type.
func (i imageInput) decode() (llm.ReferenceImage, error) {
	payload := strings.TrimSpace(i.Data)
	mimeType := i.MimeType

	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, encoded, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return llm.ReferenceImage{}, llm.NewValidationError("Reference images must be base64 data URLs")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		payload = encoded
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llm.ReferenceImage{}, llm.NewValidationError("Reference images must be base64 encoded")
	}
	if len(raw) == 0 {
		return llm.ReferenceImage{}, llm.NewValidationError("Reference images must not be empty")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}
	return llm.ReferenceImage{Data: raw, MimeType: mimeType}, nil
}

func decodeImages(in []imageInput) ([]llm.ReferenceImage, error) {
	refs := make([]llm.ReferenceImage, 0, len(in))
	for _, img := range in {
		ref, err := img.decode()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
