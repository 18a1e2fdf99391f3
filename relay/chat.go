package relay

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/prompt"
)

// chatReply is the JSON shape of a successful /chat.
type chatReply struct {
	Reply   string       `json:"reply"`
	Actions []llm.Action `json:"actions,omitempty"`
	HPDelta int          `json:"hpDelta,omitempty"`
}

// buildChatRequest turns a client payload into a provider request:
// system turns are lifted out, a missing message is taken from a trailing
// user turn, and the remaining history is normalized.
func (r *Relay) buildChatRequest(body *chatBody) (*llm.ChatRequest, error) {
	history := llm.ParseHistory(body.History)
	turns := history.Turns

	message := strings.TrimSpace(body.Message)
	if message == "" {
		var popped string
		turns, popped, _ = llm.PopTrailingUser(turns)
		message = strings.TrimSpace(popped)
	}
	if message == "" {
		return nil, llm.NewValidationError("Message is required")
	}

	system, err := prompt.Build(r.config.Prompt, body.Genre, history.System)
	if err != nil {
		return nil, llm.NewConfigError("", err.Error())
	}

	return &llm.ChatRequest{
		System:          system,
		History:         llm.Normalize(turns, r.config.HistoryLimit),
		Message:         message,
		Temperature:     r.config.Temperature,
		MaxTokens:       r.config.MaxTokens,
		SearchGrounding: r.config.ChatSearchGrounding,
	}, nil
}

func (r *Relay) handleChat(c *fiber.Ctx) error {
	var body chatBody
	if err := parseJSON(c, &body); err != nil {
		return r.fail(c, err)
	}

	req, err := r.buildChatRequest(&body)
	if err != nil {
		return r.fail(c, err)
	}

	chat := r.providers.Chat
	if chat == nil {
		return r.fail(c, llm.NewConfigError("", "no chat provider configured"))
	}

	r.logger.Debug("relaying chat",
		zap.String("provider", chat.Name()),
		zap.Int("history", len(req.History)),
		zap.String("request_id", requestID(c)),
	)

	reply, err := chat.Chat(c.UserContext(), req)
	if err != nil {
		return r.fail(c, err)
	}

	return c.JSON(chatReply{
		Reply:   reply.Text,
		Actions: llm.ExtractActions(reply.Text),
		HPDelta: llm.HPDelta(reply.Text),
	})
}
