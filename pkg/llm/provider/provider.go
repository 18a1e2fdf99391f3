// Package provider defines the capabilities an upstream AI service can
// offer and builds adapters for them by name.
package provider

import (
	"context"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

// ChatProvider produces one reply for a conversation.
type ChatProvider interface {
	Name() string
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Reply, error)
}

// SpeechProvider synthesizes audio from text.
type SpeechProvider interface {
	Name() string
	Speak(ctx context.Context, req *llm.SpeechRequest) (*llm.Audio, error)
}

// Transcriber turns an audio clip into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req *llm.TranscriptionRequest) (*llm.Reply, error)
}

// ImageProvider generates or edits one image.
type ImageProvider interface {
	Name() string
	GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.Image, error)
}
