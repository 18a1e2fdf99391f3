package provider

import (
	"context"
	"fmt"

	"github.com/papercomputeco/genrelay/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/elevenlabs"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/gemini"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/googletts"
	"github.com/papercomputeco/genrelay/pkg/llm/provider/openai"
)

// Supported provider names.
const (
	OpenAI     = openai.Name
	Gemini     = gemini.Name
	Bedrock    = bedrock.Name
	ElevenLabs = elevenlabs.Name
	GoogleTTS  = googletts.Name
)

func SupportedChatProviders() []string {
	return []string{OpenAI, Gemini, Bedrock}
}

func SupportedSpeechProviders() []string {
	return []string{OpenAI, ElevenLabs, GoogleTTS}
}

func SupportedTranscribers() []string {
	return []string{OpenAI}
}

func SupportedImageProviders() []string {
	return []string{Gemini, OpenAI}
}

// Factory builds adapters from per-provider options. Each call creates a
// fresh adapter; nothing is cached at package level.
type Factory struct {
	OpenAI     openai.Options
	Gemini     gemini.Options
	Bedrock    bedrock.Options
	ElevenLabs elevenlabs.Options
	GoogleTTS  googletts.Options
}

// Chat returns the named chat provider.
func (f *Factory) Chat(ctx context.Context, name string) (ChatProvider, error) {
	switch name {
	case OpenAI:
		return openai.New(f.OpenAI), nil
	case Gemini:
		return gemini.New(f.Gemini), nil
	case Bedrock:
		return bedrock.New(ctx, f.Bedrock)
	default:
		return nil, fmt.Errorf("unknown chat provider: %q (supported: %v)", name, SupportedChatProviders())
	}
}

// Speech returns the named speech provider.
func (f *Factory) Speech(name string) (SpeechProvider, error) {
	switch name {
	case OpenAI:
		return openai.New(f.OpenAI), nil
	case ElevenLabs:
		return elevenlabs.New(f.ElevenLabs), nil
	case GoogleTTS:
		return googletts.New(f.GoogleTTS), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %q (supported: %v)", name, SupportedSpeechProviders())
	}
}

// Transcriber returns the named transcription provider.
func (f *Factory) Transcriber(name string) (Transcriber, error) {
	switch name {
	case OpenAI:
		return openai.New(f.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider: %q (supported: %v)", name, SupportedTranscribers())
	}
}

// Image returns the named image provider.
func (f *Factory) Image(name string) (ImageProvider, error) {
	switch name {
	case Gemini:
		return gemini.New(f.Gemini), nil
	case OpenAI:
		return openai.New(f.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %q (supported: %v)", name, SupportedImageProviders())
	}
}
