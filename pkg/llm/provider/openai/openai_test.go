package openai_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/openai"
	testutils "github.com/papercomputeco/genrelay/pkg/utils/test"
)

var _ = Describe("OpenAI Provider", func() {
	var (
		ctx      context.Context
		upstream *testutils.Upstream
		p        *openai.Provider
	)

	newProvider := func(handler http.HandlerFunc) {
		upstream = testutils.NewUpstream(handler)
		p = openai.New(openai.Options{APIKey: "sk-test", BaseURL: upstream.URL})
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
	})

	Describe("Chat", func() {
		It("returns the first choice's content", func() {
			newProvider(testutils.RespondJSON(http.StatusOK,
				`{"model":"gpt-4.1-nano","choices":[{"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}]}`))

			reply, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal("Hi there"))
			Expect(reply.FinishReason).To(Equal("stop"))
		})

		It("sends the system prompt, history and message in order", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`))

			_, err := p.Chat(ctx, &llm.ChatRequest{
				System:  "You are Johnny.",
				History: []llm.Turn{{Role: llm.RoleUser, Text: "hi"}, {Role: llm.RoleAssistant, Text: "hello"}},
				Message: "help",
			})
			Expect(err).NotTo(HaveOccurred())

			req := upstream.LastRequest()
			Expect(req.Path).To(Equal("/chat/completions"))
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

			var body map[string]any
			Expect(json.Unmarshal(req.Body, &body)).To(Succeed())
			Expect(body["model"]).To(Equal(openai.DefaultChatModel))
			Expect(body["messages"]).To(Equal([]any{
				map[string]any{"role": "system", "content": "You are Johnny."},
				map[string]any{"role": "user", "content": "hi"},
				map[string]any{"role": "assistant", "content": "hello"},
				map[string]any{"role": "user", "content": "help"},
			}))
		})

		It("reports a rate limit as an upstream error without retrying", func() {
			newProvider(testutils.RespondJSON(http.StatusTooManyRequests, `{"error":{"message":"Rate limit"}}`))

			_, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			Expect(llm.IsKind(err, llm.ErrUpstream)).To(BeTrue())

			e, _ := llm.AsError(err)
			Expect(e.Status).To(Equal(http.StatusTooManyRequests))
			Expect(string(e.Raw)).To(ContainSubstring("Rate limit"))
			Expect(upstream.Calls()).To(Equal(1))
		})

		It("reports a refusal as an empty response with the reason", func() {
			newProvider(testutils.RespondJSON(http.StatusOK,
				`{"choices":[{"message":{"content":null,"refusal":"I can't help with that."},"finish_reason":"stop"}]}`))

			_, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			e, ok := llm.AsError(err)
			Expect(ok).To(BeTrue())
			Expect(e.Kind).To(Equal(llm.ErrEmptyResponse))
			Expect(e.Detail).To(Equal("I can't help with that."))
		})

		It("reports content filtering as an empty response", func() {
			newProvider(testutils.RespondJSON(http.StatusOK,
				`{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`))

			_, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			e, _ := llm.AsError(err)
			Expect(e.Kind).To(Equal(llm.ErrEmptyResponse))
			Expect(e.Detail).To(ContainSubstring("content_filter"))
		})

		It("reports a response without choices as malformed", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"object":"chat.completion"}`))

			_, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			Expect(llm.IsKind(err, llm.ErrMalformed)).To(BeTrue())
		})

		It("fails before calling upstream without an API key", func() {
			upstream = testutils.NewUpstream(testutils.RespondJSON(http.StatusOK, `{}`))
			p = openai.New(openai.Options{BaseURL: upstream.URL})

			_, err := p.Chat(ctx, &llm.ChatRequest{Message: "Hello"})
			Expect(llm.IsKind(err, llm.ErrConfig)).To(BeTrue())
			Expect(upstream.Calls()).To(Equal(0))
		})

		It("appends search grounding to the system prompt", func() {
			upstream = testutils.NewUpstream(testutils.RespondJSON(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`))
			p = openai.New(openai.Options{
				APIKey:   "sk-test",
				BaseURL:  upstream.URL,
				Grounder: staticGrounder("Search results:\n1. Go 1.25 released"),
			})

			_, err := p.Chat(ctx, &llm.ChatRequest{System: "Be helpful.", Message: "latest go", SearchGrounding: true})
			Expect(err).NotTo(HaveOccurred())

			var body struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			Expect(json.Unmarshal(upstream.LastRequest().Body, &body)).To(Succeed())
			Expect(body.Messages[0].Role).To(Equal("system"))
			Expect(body.Messages[0].Content).To(HavePrefix("Be helpful."))
			Expect(body.Messages[0].Content).To(ContainSubstring("Go 1.25 released"))
		})
	})

	Describe("Speak", func() {
		It("relays the audio bytes as wav", func() {
			newProvider(testutils.RespondBytes("audio/wav", []byte("RIFF....WAVE")))

			audio, err := p.Speak(ctx, &llm.SpeechRequest{Text: "Hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(audio.MimeType).To(Equal("audio/wav"))
			Expect(audio.Data).To(Equal([]byte("RIFF....WAVE")))

			var body map[string]any
			Expect(json.Unmarshal(upstream.LastRequest().Body, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("voice", "alloy"))
			Expect(body).To(HaveKeyWithValue("model", "gpt-4o-mini-tts"))
			Expect(body).To(HaveKeyWithValue("response_format", "wav"))
		})

		It("uses the requested voice", func() {
			newProvider(testutils.RespondBytes("audio/wav", []byte("x")))

			_, err := p.Speak(ctx, &llm.SpeechRequest{Text: "Hello", Voice: "nova"})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(upstream.LastRequest().Body)).To(ContainSubstring(`"voice":"nova"`))
		})
	})

	Describe("Transcribe", func() {
		It("uploads the clip as multipart form data", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"text":"hello world"}`))

			reply, err := p.Transcribe(ctx, &llm.TranscriptionRequest{Audio: []byte("webm-bytes")})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal("hello world"))

			req := upstream.LastRequest()
			mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			Expect(err).NotTo(HaveOccurred())
			Expect(mediaType).To(Equal("multipart/form-data"))

			form, err := multipart.NewReader(strings.NewReader(string(req.Body)), params["boundary"]).ReadForm(1 << 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Value["model"]).To(Equal([]string{"whisper-1"}))
			Expect(form.File["file"]).To(HaveLen(1))
			Expect(form.File["file"][0].Filename).To(Equal("speech.webm"))
		})

		It("rejects empty audio", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"text":""}`))

			_, err := p.Transcribe(ctx, &llm.TranscriptionRequest{})
			Expect(llm.IsKind(err, llm.ErrValidation)).To(BeTrue())
			Expect(upstream.Calls()).To(Equal(0))
		})

		It("reports a response without text as malformed", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"segments":[]}`))

			_, err := p.Transcribe(ctx, &llm.TranscriptionRequest{Audio: []byte("x")})
			Expect(llm.IsKind(err, llm.ErrMalformed)).To(BeTrue())
		})
	})

	Describe("GenerateImage", func() {
		It("decodes b64_json", func() {
			encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
			newProvider(testutils.RespondJSON(http.StatusOK, `{"data":[{"b64_json":"`+encoded+`"}]}`))

			img, err := p.GenerateImage(ctx, &llm.ImageRequest{Prompt: "a cat"})
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Data).To(Equal([]byte("png-bytes")))
			Expect(img.MimeType).To(Equal("image/png"))
		})

		It("falls back to the hosted url", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"data":[{"url":"https://example.com/cat.png"}]}`))

			img, err := p.GenerateImage(ctx, &llm.ImageRequest{Prompt: "a cat"})
			Expect(err).NotTo(HaveOccurred())
			Expect(img.URL).To(Equal("https://example.com/cat.png"))
		})

		It("reports an empty data array as an empty response", func() {
			newProvider(testutils.RespondJSON(http.StatusOK, `{"data":[]}`))

			_, err := p.GenerateImage(ctx, &llm.ImageRequest{Prompt: "a cat"})
			Expect(llm.IsKind(err, llm.ErrEmptyResponse)).To(BeTrue())
		})
	})
})

type staticGrounder string

func (g staticGrounder) Ground(context.Context, string) (string, error) {
	return string(g), nil
}
