package llm

// Reply is the text produced by a chat or transcription call.
type Reply struct {
	Text         string
	Model        string
	FinishReason string
	Usage        *Usage
}

// Usage contains token counts when the provider reports them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Audio is synthesized speech relayed to the client as-is.
type Audio struct {
	Data     []byte
	MimeType string
}

// Image is a generated image. Data is set when the provider returned bytes,
// URL when it only returned a hosted location.
type Image struct {
	Data     []byte
	MimeType string
	URL      string
}
