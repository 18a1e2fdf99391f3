package gemini

import (
	"context"
	"strings"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

func toRole(r llm.Role) string {
	switch r {
	case llm.RoleAssistant:
		return roleModel
	default:
		return roleUser
	}
}

func fromRole(role string) llm.Role {
	switch role {
	case roleModel:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

func toContents(turns []llm.Turn) []content {
	contents := make([]content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, content{Role: toRole(t.Role), Parts: []part{{Text: t.Text}}})
	}
	return contents
}

func fromContents(contents []content) []llm.Turn {
	turns := make([]llm.Turn, 0, len(contents))
	for _, c := range contents {
		turns = append(turns, llm.NewTurn(fromRole(c.Role), joinText(c.Parts)))
	}
	return turns
}

// Chat sends one generateContent request with the conversation.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Reply, error) {
	model := req.Model
	if model == "" {
		model = p.opts.ChatModel
	}

	body := &generateContentRequest{
		Contents:       toContents(req.Turns()),
		SafetySettings: p.safetySettings(),
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		body.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	if req.SearchGrounding {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	resp, raw, err := p.generate(ctx, model, body)
	if err != nil {
		return nil, err
	}

	out := classify(resp)
	if out.kind == outcomeImage && strings.TrimSpace(out.text) != "" {
		// Text alongside an inline image is still a chat reply.
		out.kind = outcomeText
	}
	switch out.kind {
	case outcomeText:
		reply := &llm.Reply{Text: out.text, Model: model, FinishReason: out.finishReason}
		if resp.ModelVersion != "" {
			reply.Model = resp.ModelVersion
		}
		if u := resp.UsageMetadata; u != nil {
			reply.Usage = &llm.Usage{
				PromptTokens:     u.PromptTokenCount,
				CompletionTokens: u.CandidatesTokenCount,
				TotalTokens:      u.TotalTokenCount,
			}
		}
		return reply, nil
	case outcomeImage:
		return nil, llm.NewEmptyResponseError(Name, "model returned an image instead of text", raw)
	case outcomeBlocked, outcomeEmpty:
		return nil, llm.NewEmptyResponseError(Name, out.detail, raw)
	case outcomeMalformed:
		return nil, llm.NewMalformedError(Name, raw, nil)
	default:
		return nil, llm.NewMalformedError(Name, raw, nil)
	}
}

type outcomeKind int

const (
	outcomeText outcomeKind = iota
	outcomeImage
	outcomeBlocked
	outcomeEmpty
	outcomeMalformed
)

type outcome struct {
	kind         outcomeKind
	text         string
	image        *inlineData
	detail       string
	finishReason string
}

// classify walks a generateContent response. Text is the concatenation of
// the first candidate's non-thought text parts; the first inline data part
// is kept for image calls. Without content, the block reason or finish
// reason becomes the detail.
func classify(resp *generateContentResponse) outcome {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return outcome{kind: outcomeBlocked, detail: "blocked: " + resp.PromptFeedback.BlockReason}
		}
		return outcome{kind: outcomeMalformed}
	}

	cand := resp.Candidates[0]
	out := outcome{finishReason: cand.FinishReason}

	if cand.Content != nil {
		for i := range cand.Content.Parts {
			if cand.Content.Parts[i].InlineData != nil && out.image == nil {
				out.image = cand.Content.Parts[i].InlineData
			}
		}
		out.text = joinText(cand.Content.Parts)
	}

	switch {
	case out.image != nil:
		out.kind = outcomeImage
	case strings.TrimSpace(out.text) != "":
		out.kind = outcomeText
	case cand.FinishReason != "" && cand.FinishReason != "STOP":
		out.kind = outcomeBlocked
		out.detail = "finishReason: " + cand.FinishReason
	default:
		out.kind = outcomeEmpty
		out.detail = "no text in candidate"
	}
	return out
}

func joinText(parts []part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Thought || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
