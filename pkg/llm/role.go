package llm

import (
	"fmt"
	"strings"
)

// Role is the speaker of a conversation turn. Every provider adapter maps
// both values onto its own vocabulary and back.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

var roleNames = [...]string{
	RoleUser:      "user",
	RoleAssistant: "assistant",
}

func (r Role) String() string {
	if int(r) >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MarshalText renders the canonical role label.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts any label ParseRole accepts.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// ParseRole maps a client-supplied role label onto a Role. The mapping is
// total: the assistant aliases used by the various front ends map to
// RoleAssistant and everything else, including typos and empty labels, is
// treated as the user.
func ParseRole(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "assistant", "model", "ai", "bot":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// isSystemLabel reports whether a client label marks a system prompt turn
// rather than a conversational one.
func isSystemLabel(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), "system")
}
