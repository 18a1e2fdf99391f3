package llm

// ChatRequest is a provider-agnostic chat call built per inbound request.
type ChatRequest struct {
	// Model overrides the adapter's configured model when non-empty.
	Model string

	// System prompt, sent through whatever channel the provider offers.
	System string

	// History is the normalized prior conversation, oldest first.
	History []Turn

	// Message is the new user message.
	Message string

	Temperature *float64
	MaxTokens   *int

	// SearchGrounding asks the adapter to ground the reply in web search
	// results when it knows how.
	SearchGrounding bool
}

// Turns returns the history followed by the new message as a user turn.
func (r *ChatRequest) Turns() []Turn {
	turns := make([]Turn, 0, len(r.History)+1)
	turns = append(turns, r.History...)
	if r.Message != "" {
		turns = append(turns, NewTurn(RoleUser, r.Message))
	}
	return turns
}

// SpeechRequest asks for text to be synthesized. Voice is provider specific
// and optional.
type SpeechRequest struct {
	Text  string
	Voice string
}

// TranscriptionRequest carries one uploaded audio clip.
type TranscriptionRequest struct {
	Audio    []byte
	Filename string
	MimeType string
}

// ReferenceImage is an image supplied by the client for editing or
// analysis.
type ReferenceImage struct {
	Data     []byte
	MimeType string
}

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Prompt     string
	References []ReferenceImage

	// SearchGrounding requests the provider's search tool alongside image
	// generation. Providers that reject the combination are retried once
	// without it.
	SearchGrounding bool
}
