package openai

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

func toRole(r llm.Role) string {
	switch r {
	case llm.RoleAssistant:
		return roleAssistant
	default:
		return roleUser
	}
}

func fromRole(role string) llm.Role {
	switch role {
	case roleAssistant:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

func toMessages(system string, turns []llm.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: roleSystem, Content: system})
	}
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: toRole(t.Role), Content: t.Text})
	}
	return messages
}

func fromMessages(messages []chatMessage) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		if m.Role == roleSystem {
			continue
		}
		turns = append(turns, llm.NewTurn(fromRole(m.Role), m.Content))
	}
	return turns
}

// Chat sends one chat completion request.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Reply, error) {
	headers, err := p.authHeaders()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.opts.ChatModel
	}

	system := req.System
	if req.SearchGrounding && p.opts.Grounder != nil && req.Message != "" {
		grounding, err := p.opts.Grounder.Ground(ctx, req.Message)
		if err != nil {
			// Grounding is best effort; the chat call still goes out.
			p.client.Logger().Warn("search grounding failed", zap.Error(err))
		} else if grounding != "" {
			system = strings.TrimSpace(system + "\n\n" + grounding)
		}
	}

	resp, err := p.client.PostJSON(ctx, p.url("/chat/completions"), headers, chatRequest{
		Model:       model,
		Messages:    toMessages(system, req.Turns()),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := p.client.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}

	out := classifyChat(&parsed)
	switch out.kind {
	case chatText:
		reply := &llm.Reply{Text: out.text, Model: parsed.Model, FinishReason: out.finishReason}
		if parsed.Usage != nil {
			reply.Usage = &llm.Usage{
				PromptTokens:     parsed.Usage.PromptTokens,
				CompletionTokens: parsed.Usage.CompletionTokens,
				TotalTokens:      parsed.Usage.TotalTokens,
			}
		}
		return reply, nil
	case chatRefused:
		return nil, llm.NewEmptyResponseError(Name, out.detail, resp.Body)
	case chatFiltered, chatEmpty:
		return nil, llm.NewEmptyResponseError(Name, "finish_reason: "+out.finishReason, resp.Body)
	case chatMalformed:
		return nil, llm.NewMalformedError(Name, resp.Body, nil)
	default:
		return nil, llm.NewMalformedError(Name, resp.Body, nil)
	}
}

type chatOutcomeKind int

const (
	chatText chatOutcomeKind = iota
	chatRefused
	chatFiltered
	chatEmpty
	chatMalformed
)

type chatOutcome struct {
	kind         chatOutcomeKind
	text         string
	detail       string
	finishReason string
}

// classifyChat picks the usable text out of a completion. The primary path
// is choices[0].message.content; refusals and content filtering are
// reported with their reason.
func classifyChat(resp *chatResponse) chatOutcome {
	if len(resp.Choices) == 0 {
		return chatOutcome{kind: chatMalformed}
	}

	choice := resp.Choices[0]
	out := chatOutcome{finishReason: choice.FinishReason}

	if text := contentText(choice.Message.Content); strings.TrimSpace(text) != "" {
		out.kind = chatText
		out.text = text
		return out
	}

	switch {
	case choice.Message.Refusal != "":
		out.kind = chatRefused
		out.detail = choice.Message.Refusal
	case choice.FinishReason == "content_filter":
		out.kind = chatFiltered
	default:
		out.kind = chatEmpty
	}
	return out
}

// contentText reads message content given either as a string or as an
// array of typed parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range parts {
		if part.Type == "text" || part.Type == "output_text" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
