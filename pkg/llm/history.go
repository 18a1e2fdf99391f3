package llm

import "strings"

const (
	// DefaultHistoryLimit is the number of most-recent turns kept when no
	// limit is configured.
	DefaultHistoryLimit = 20

	// PlaceholderUserText is the text of the synthetic user turn prepended
	// when a history would otherwise open with an assistant turn.
	PlaceholderUserText = "(continue)"
)

// History is a client history after role mapping. System-labelled client
// turns are lifted out of the conversation into System.
type History struct {
	System string
	Turns  []Turn
}

// ParseHistory converts client turns into a History. Empty turns are dropped.
func ParseHistory(in []ClientTurn) History {
	var (
		h      History
		system []string
	)

	for _, ct := range in {
		text := strings.TrimSpace(ct.Text)
		if text == "" {
			continue
		}
		if isSystemLabel(ct.Role) {
			system = append(system, text)
			continue
		}
		h.Turns = append(h.Turns, NewTurn(ParseRole(ct.Role), ct.Text))
	}

	h.System = strings.Join(system, "\n\n")
	return h
}

// Normalize keeps the limit most-recent turns (all of them when limit <= 0)
// and guarantees the result opens with a user turn by prepending a
// placeholder when needed. The placeholder counts toward the limit: when it
// is needed on a full window the oldest kept turn makes room for it. A
// history already opening with a user turn is returned unchanged apart from
// truncation, so Normalize is idempotent.
func Normalize(turns []Turn, limit int) []Turn {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	if limit > 0 && len(turns) == limit && turns[0].Role != RoleUser {
		turns = turns[1:]
	}

	out := make([]Turn, 0, len(turns)+1)
	if len(turns) > 0 && turns[0].Role != RoleUser {
		out = append(out, NewTurn(RoleUser, PlaceholderUserText))
	}
	return append(out, turns...)
}

// PopTrailingUser removes a trailing user turn and returns its text. Some
// clients send the new message as the last history entry instead of in a
// separate field.
func PopTrailingUser(turns []Turn) ([]Turn, string, bool) {
	if len(turns) == 0 {
		return turns, "", false
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return turns, "", false
	}
	return turns[:len(turns)-1], last.Text, true
}
