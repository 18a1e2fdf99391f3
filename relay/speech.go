package relay

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider"
)

// speechProvider picks the adapter named in the request, or the default.
func (r *Relay) speechProvider(name string) (provider.SpeechProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.providers.DefaultSpeech
	}

	sp, ok := r.providers.Speech[name]
	if !ok || sp == nil {
		if name == r.providers.DefaultSpeech {
			return nil, llm.NewConfigError("", "no speech provider configured")
		}
		return nil, llm.NewValidationError("Unknown speech provider: " + name)
	}
	return sp, nil
}

func (r *Relay) handleSpeech(c *fiber.Ctx) error {
	var body speechBody
	if err := parseJSON(c, &body); err != nil {
		return r.fail(c, err)
	}
	body.Text = strings.TrimSpace(body.Text)
	if err := check(&body); err != nil {
		return r.fail(c, err)
	}

	sp, err := r.speechProvider(body.Provider)
	if err != nil {
		return r.fail(c, err)
	}

	audio, err := sp.Speak(c.UserContext(), &llm.SpeechRequest{Text: body.Text, Voice: body.Voice})
	if err != nil {
		return r.fail(c, err)
	}
	return replyAudio(c, audio)
}

func (r *Relay) handleTranscribe(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil || fh.Size == 0 {
		return r.fail(c, llm.NewValidationError("Audio file is required"))
	}

	f, err := fh.Open()
	if err != nil {
		return r.fail(c, llm.NewValidationError("Audio file is unreadable"))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return r.fail(c, llm.NewValidationError("Audio file is unreadable"))
	}

	tr := r.providers.Transcriber
	if tr == nil {
		return r.fail(c, llm.NewConfigError("", "no transcription provider configured"))
	}

	reply, err := tr.Transcribe(c.UserContext(), &llm.TranscriptionRequest{
		Audio:    data,
		Filename: fh.Filename,
		MimeType: fh.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(fiber.Map{"text": reply.Text})
}
