package llm

import (
	"encoding/json"
	"strings"
)

// Turn is one conversational exchange unit in provider-agnostic form.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewTurn creates a turn for the given role.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Text: text}
}

// ClientTurn is a history entry as sent by a browser client. Front ends
// disagree on the shape, so the text may arrive under "text", "content" or
// "parts", and "content"/"parts" may be a plain string or an array of
// {text} objects.
type ClientTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (t *ClientTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Text    string          `json:"text"`
		Content json.RawMessage `json:"content"`
		Parts   json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = raw.Role
	t.Text = raw.Text
	if t.Text == "" {
		t.Text = flexText(raw.Content)
	}
	if t.Text == "" {
		t.Text = flexText(raw.Parts)
	}
	return nil
}

// flexText extracts text from either a JSON string or an array of parts.
func flexText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
