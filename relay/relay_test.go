package relay_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm/provider"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/elevenlabs"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/gemini"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/openai"
	"github.com/papercomputeco/genrelay/pkg/prompt"
	testutils "github.com/papercomputeco/genrelay/pkg/utils/test"
	"github.com/papercomputeco/genrelay/relay"
)

type response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r response) JSON() map[string]any {
	var out map[string]any
	ExpectWithOffset(1, json.Unmarshal(r.Body, &out)).To(Succeed(), string(r.Body))
	return out
}

func do(r *relay.Relay, req *http.Request) response {
	resp, err := r.App().Test(req, -1)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: body}
}

func postJSON(r *relay.Relay, path string, payload any) response {
	data, err := json.Marshal(payload)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return do(r, req)
}

func postMultipart(r *relay.Relay, path string, fields map[string]string, fileField, filename string, file []byte) response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		ExpectWithOffset(1, mw.WriteField(k, v)).To(Succeed())
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		_, err = fw.Write(file)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}
	ExpectWithOffset(1, mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(r, req)
}

const openAIReply = `{"model":"gpt-4.1-nano","choices":[{"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}]}`

var _ = Describe("Relay", func() {
	var (
		upstream *testutils.Upstream
		r        *relay.Relay
		cfg      relay.Config
	)

	start := func(handler http.HandlerFunc) {
		upstream = testutils.NewUpstream(handler)
		DeferCleanup(upstream.Close)

		oa := openai.New(openai.Options{APIKey: "sk-test", BaseURL: upstream.URL, Logger: zap.NewNop()})
		gm := gemini.New(gemini.Options{APIKey: "g-test", BaseURL: upstream.URL, Logger: zap.NewNop()})
		el := elevenlabs.New(elevenlabs.Options{APIKey: "xi-test", BaseURL: upstream.URL, Logger: zap.NewNop()})

		r = relay.New(cfg, relay.Providers{
			Chat: oa,
			Speech: map[string]provider.SpeechProvider{
				provider.OpenAI:     oa,
				provider.ElevenLabs: provider.WithTruncation(el, 20, 10, nil),
			},
			DefaultSpeech: provider.OpenAI,
			Transcriber:   oa,
			Image:         gm,
		}, zap.NewNop())
	}

	BeforeEach(func() {
		cfg = relay.Config{Prompt: prompt.Options{Persona: prompt.PersonaNone}}
	})

	Describe("GET /health", func() {
		It("reports ok", func() {
			start(testutils.RespondJSON(http.StatusOK, `{}`))

			resp := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(Equal(map[string]any{"status": "ok"}))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("answers on / when no static dir is configured", func() {
			start(testutils.RespondJSON(http.StatusOK, `{}`))

			resp := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(resp.Status).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /chat", func() {
		It("relays the reply text", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			resp := postJSON(r, "/chat", map[string]any{"message": "Hello", "history": []any{}})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(Equal(map[string]any{"reply": "Hi there"}))
			Expect(upstream.Calls()).To(Equal(1))
			Expect(upstream.LastRequest().Path).To(Equal("/chat/completions"))
		})

		It("is also served under /api/chat", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			resp := postJSON(r, "/api/chat", map[string]any{"message": "Hello"})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()["reply"]).To(Equal("Hi there"))
		})

		It("normalizes history before forwarding it", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			resp := postJSON(r, "/chat", map[string]any{
				"message": "and then?",
				"history": []any{
					map[string]any{"role": "system", "text": "Speak like a pirate."},
					map[string]any{"role": "model", "parts": []any{map[string]any{"text": "Ahoy."}}},
					map[string]any{"role": "user", "content": "Where are we?"},
				},
			})
			Expect(resp.Status).To(Equal(http.StatusOK))

			var sent struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			Expect(json.Unmarshal(upstream.LastRequest().Body, &sent)).To(Succeed())

			roles := make([]string, 0, len(sent.Messages))
			for _, m := range sent.Messages {
				roles = append(roles, m.Role)
			}
			Expect(roles).To(Equal([]string{"system", "user", "assistant", "user", "user"}))
			Expect(sent.Messages[0].Content).To(Equal("Speak like a pirate."))
			Expect(sent.Messages[1].Content).To(Equal("(continue)"))
			Expect(sent.Messages[4].Content).To(Equal("and then?"))
		})

		It("keeps only the configured number of recent turns", func() {
			cfg.HistoryLimit = 2
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			history := []any{}
			for i := 0; i < 6; i++ {
				role := "user"
				if i%2 == 1 {
					role = "assistant"
				}
				history = append(history, map[string]any{"role": role, "text": strings.Repeat("x", i+1)})
			}
			resp := postJSON(r, "/chat", map[string]any{"message": "next", "history": history})
			Expect(resp.Status).To(Equal(http.StatusOK))

			var sent struct {
				Messages []json.RawMessage `json:"messages"`
			}
			Expect(json.Unmarshal(upstream.LastRequest().Body, &sent)).To(Succeed())
			// two kept turns, the new message, no system prompt
			Expect(sent.Messages).To(HaveLen(3))
		})

		It("takes the message from a trailing user turn", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			resp := postJSON(r, "/chat", map[string]any{
				"history": []any{map[string]any{"role": "user", "text": "Hello"}},
			})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(upstream.Calls()).To(Equal(1))
		})

		It("rejects a missing message without calling upstream", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			resp := postJSON(r, "/chat", map[string]any{"message": "   ", "history": []any{}})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "Message is required"}))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("rejects malformed JSON", func() {
			start(testutils.RespondJSON(http.StatusOK, openAIReply))

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{nope"))
			req.Header.Set("Content-Type", "application/json")
			resp := do(r, req)
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("maps an upstream 429 to 502 after exactly one call", func() {
			start(testutils.RespondJSON(http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`))

			resp := postJSON(r, "/chat", map[string]any{"message": "Hello"})
			Expect(resp.Status).To(Equal(http.StatusBadGateway))
			body := resp.JSON()
			Expect(body).To(HaveKey("error"))
			Expect(string(resp.Body)).NotTo(ContainSubstring("Rate limit reached"))
			Expect(upstream.Calls()).To(Equal(1))
		})

		It("maps an empty completion to 500 with details", func() {
			start(testutils.RespondJSON(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`))

			resp := postJSON(r, "/chat", map[string]any{"message": "Hello"})
			Expect(resp.Status).To(Equal(http.StatusInternalServerError))
			body := resp.JSON()
			Expect(body).To(HaveKey("error"))
			Expect(body).To(HaveKey("details"))
		})

		It("returns game actions and hit point changes found in the reply", func() {
			reply := `You drink the potion. (+10 HP)\n{"action":"remove_item","item":{"name":"potion"}}`
			payload, err := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": reply}}},
			})
			Expect(err).NotTo(HaveOccurred())
			start(testutils.RespondJSON(http.StatusOK, string(payload)))

			resp := postJSON(r, "/chat", map[string]any{"message": "drink"})
			Expect(resp.Status).To(Equal(http.StatusOK))
			body := resp.JSON()
			Expect(body["reply"]).To(Equal(reply))
			Expect(body["hpDelta"]).To(BeNumerically("==", 10))
			Expect(body["actions"]).To(HaveLen(1))
		})
	})

	Describe("POST /tts", func() {
		It("rejects empty text without calling upstream", func() {
			start(testutils.RespondBytes("audio/wav", []byte("RIFF")))

			resp := postJSON(r, "/tts", map[string]any{"text": ""})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "Text is required"}))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("relays audio bytes with their content type", func() {
			start(testutils.RespondBytes("audio/wav", []byte("RIFF....WAVE")))

			resp := postJSON(r, "/speech", map[string]any{"text": "Hello there."})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.ContentType).To(Equal("audio/wav"))
			Expect(resp.Body).To(Equal([]byte("RIFF....WAVE")))
			Expect(upstream.LastRequest().Path).To(Equal("/audio/speech"))
		})

		It("routes to the provider named in the request and truncates long text", func() {
			start(testutils.RespondBytes("audio/mpeg", []byte("ID3")))

			resp := postJSON(r, "/api/speech", map[string]any{
				"text":     "First sentence. Second sentence is long.",
				"provider": "elevenlabs",
			})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.ContentType).To(Equal("audio/mpeg"))

			var sent struct {
				Text string `json:"text"`
			}
			Expect(json.Unmarshal(upstream.LastRequest().Body, &sent)).To(Succeed())
			Expect(sent.Text).To(Equal("First sentence."))
		})

		It("rejects unknown providers", func() {
			start(testutils.RespondBytes("audio/wav", []byte("RIFF")))

			resp := postJSON(r, "/tts", map[string]any{"text": "hi", "provider": "nope"})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(upstream.Calls()).To(BeZero())
		})
	})

	Describe("POST /transcribe", func() {
		It("requires an audio file", func() {
			start(testutils.RespondJSON(http.StatusOK, `{"text":"hello"}`))

			resp := postMultipart(r, "/transcribe", nil, "", "", nil)
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "Audio file is required"}))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("relays the transcript", func() {
			start(testutils.RespondJSON(http.StatusOK, `{"text":"hello world"}`))

			resp := postMultipart(r, "/api/transcribe", nil, "audio", "clip.webm", []byte("webm-bytes"))
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(Equal(map[string]any{"text": "hello world"}))
			Expect(upstream.LastRequest().Path).To(Equal("/audio/transcriptions"))
		})
	})

	Describe("image endpoints", func() {
		png := []byte("\x89PNG\r\n\x1a\nfake")
		geminiImage := `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` +
			base64.StdEncoding.EncodeToString(png) + `"}}]}}]}`

		It("requires a prompt", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postJSON(r, "/generate-image", map[string]any{"prompt": ""})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "Prompt is required"}))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("returns base64 image data", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postJSON(r, "/generate-image", map[string]any{"prompt": "a castle"})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(Equal(map[string]any{
				"image_b64": base64.StdEncoding.EncodeToString(png),
				"mimeType":  "image/png",
			}))
		})

		It("returns a data URL on /image", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postJSON(r, "/image", map[string]any{"prompt": "a castle"})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()["imageUrl"]).To(Equal("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)))
		})

		It("requires references on /image-edit", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postJSON(r, "/image-edit", map[string]any{"prompt": "make it blue"})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "At least one reference image is required"}))
		})

		It("accepts data URLs, bare base64 and objects as references", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			enc := base64.StdEncoding.EncodeToString([]byte("ref"))
			resp := postJSON(r, "/image-edit", map[string]any{
				"prompt": "merge these",
				"images": []any{
					"data:image/jpeg;base64," + enc,
					enc,
					map[string]any{"data": enc, "mimeType": "image/webp"},
				},
			})
			Expect(resp.Status).To(Equal(http.StatusOK))

			var sent struct {
				Contents []struct {
					Parts []struct {
						InlineData *struct {
							MimeType string `json:"mimeType"`
							Data     string `json:"data"`
						} `json:"inlineData"`
					} `json:"parts"`
				} `json:"contents"`
			}
			Expect(json.Unmarshal(upstream.LastRequest().Body, &sent)).To(Succeed())
			parts := sent.Contents[0].Parts
			Expect(parts).To(HaveLen(4))
			Expect(parts[1].InlineData.MimeType).To(Equal("image/jpeg"))
			Expect(parts[3].InlineData.MimeType).To(Equal("image/webp"))
			Expect(parts[2].InlineData.Data).To(Equal(enc))
		})

		It("rejects references that are not base64", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postJSON(r, "/image-edit", map[string]any{"prompt": "x", "images": []any{"%%%"}})
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(upstream.Calls()).To(BeZero())
		})

		It("retries an edit once without the search tool, then succeeds", func() {
			cfg.ImageSearchGrounding = true
			start(func(w http.ResponseWriter, req *http.Request) {
				defer GinkgoRecover()
				var sent struct {
					Tools []json.RawMessage `json:"tools"`
				}
				Expect(json.NewDecoder(req.Body).Decode(&sent)).To(Succeed())
				if len(sent.Tools) > 0 {
					testutils.RespondJSON(http.StatusBadRequest,
						`{"error":{"code":400,"message":"Search as tool is not enabled for this model"}}`)(w, req)
					return
				}
				testutils.RespondJSON(http.StatusOK, geminiImage)(w, req)
			})

			resp := postJSON(r, "/image-edit", map[string]any{
				"prompt": "add a dragon",
				"images": []any{base64.StdEncoding.EncodeToString(png)},
			})
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(HaveKey("image_b64"))
			Expect(upstream.Calls()).To(Equal(2))
		})

		It("analyzes an uploaded file", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postMultipart(r, "/api/analyze", map[string]string{"prompt": "describe and restyle"}, "file", "photo.png", png)
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(resp.JSON()).To(HaveKey("image_b64"))
		})

		It("requires a file on /api/analyze", func() {
			start(testutils.RespondJSON(http.StatusOK, geminiImage))

			resp := postMultipart(r, "/api/analyze", map[string]string{"prompt": "describe"}, "", "", nil)
			Expect(resp.Status).To(Equal(http.StatusBadRequest))
			Expect(resp.JSON()).To(Equal(map[string]any{"error": "At least one reference image is required"}))
		})
	})

	Describe("unconfigured capabilities", func() {
		It("answers 500 when no chat provider is set", func() {
			r = relay.New(relay.Config{}, relay.Providers{}, nil)

			resp := postJSON(r, "/chat", map[string]any{"message": "Hello"})
			Expect(resp.Status).To(Equal(http.StatusInternalServerError))
			Expect(resp.JSON()).To(HaveKey("error"))
		})

		It("answers unknown routes with a JSON 404", func() {
			r = relay.New(relay.Config{}, relay.Providers{}, nil)

			resp := do(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
			Expect(resp.Status).To(Equal(http.StatusNotFound))
			Expect(resp.JSON()).To(HaveKey("error"))
		})
	})
})
