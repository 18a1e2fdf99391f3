package relay

import (
	"github.com/papercomputeco/genrelay/pkg/llm/provider"
	"github.com/papercomputeco/genrelay/pkg/prompt"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// StaticDir, when set, is served at "/" for the browser front end.
	StaticDir string

	// CORSOrigins is the Access-Control-Allow-Origin list. Empty means "*".
	CORSOrigins string

	// HistoryLimit is how many recent history turns reach the chat
	// provider. Zero uses llm.DefaultHistoryLimit; negative keeps all.
	HistoryLimit int

	Prompt prompt.Options

	Temperature *float64
	MaxTokens   *int

	ChatSearchGrounding  bool
	ImageSearchGrounding bool
}

// Providers are the adapters a relay forwards to. Any of them may be nil, in
// which case the matching endpoints answer with a configuration error.
type Providers struct {
	Chat provider.ChatProvider

	// Speech maps provider names to adapters so clients may pick one per
	// request. DefaultSpeech names the one used otherwise.
	Speech        map[string]provider.SpeechProvider
	DefaultSpeech string

	Transcriber provider.Transcriber
	Image       provider.ImageProvider
}
