package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/utils"
)

const (
	// DefaultSpeechMaxChars keeps synthesized clips short enough for
	// provider limits and quick playback.
	DefaultSpeechMaxChars = 700

	// DefaultSpeechBackscan is how far before the limit a sentence boundary
	// is searched for.
	DefaultSpeechBackscan = 200
)

// truncatingSpeech shortens text before handing it to the wrapped provider.
type truncatingSpeech struct {
	next     SpeechProvider
	maxChars int
	backscan int
	logger   *zap.Logger
}

// WithTruncation wraps sp so that text longer than maxChars is cut at a
// sentence boundary before synthesis. maxChars <= 0 disables truncation.
func WithTruncation(sp SpeechProvider, maxChars, backscan int, logger *zap.Logger) SpeechProvider {
	if maxChars <= 0 {
		return sp
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &truncatingSpeech{next: sp, maxChars: maxChars, backscan: backscan, logger: logger}
}

func (t *truncatingSpeech) Name() string {
	return t.next.Name()
}

func (t *truncatingSpeech) Speak(ctx context.Context, req *llm.SpeechRequest) (*llm.Audio, error) {
	text := utils.TruncateSentence(req.Text, t.maxChars, t.backscan)
	if len(text) != len(req.Text) {
		t.logger.Debug("truncated speech input",
			zap.String("provider", t.next.Name()),
			zap.Int("from", len(req.Text)),
			zap.Int("to", len(text)),
		)
	}
	return t.next.Speak(ctx, &llm.SpeechRequest{Text: text, Voice: req.Voice})
}
