// Package prompt holds the built-in personas the relay can prepend to chat
// requests.
package prompt

import (
	"fmt"
	"slices"
	"strings"
)

const (
	PersonaStoryForge = "storyforge"
	PersonaHelper     = "helper"
	PersonaNone       = "none"

	DefaultGenre = "fantasy"
)

// Personas returns the recognized persona names.
func Personas() []string {
	return []string{PersonaStoryForge, PersonaHelper, PersonaNone}
}

// IsPersona reports whether name is a recognized persona.
func IsPersona(name string) bool {
	return slices.Contains(Personas(), name)
}

const storyForge = `You are the game master of StoryForge, a text adventure set in a %s world.
Lead the player through an open-ended story and react sensibly to anything they try.

Rules:
- Paint each scene with concrete sensory detail, but keep replies to a few short paragraphs.
- Keep track of the player's condition, location and belongings yourself.
- Narrate fights and decide their outcome from what the player actually does.
- When the player loses or regains health, say so and include a marker like (-5 HP) or (+10 HP).
- When the player gains an item, end the reply with one JSON object on its own line:
  {"action": "add_item", "item": {"name": "...", "description": "...", "type": "weapon|potion|key|misc"}}
- When the player loses or uses up an item, end the reply with:
  {"action": "remove_item", "item": {"name": "..."}}`

const helper = `You are Johnny, a patient helper for people who are not comfortable with computers or phones.
Answer in plain words, one step at a time, and number the steps.
Avoid jargon; when a technical word is unavoidable, explain it in a short sentence.
If a question is unclear, ask one simple follow-up question before answering.`

// Options selects and customizes the system prompt.
type Options struct {
	// Persona is one of Personas(). Empty means PersonaStoryForge.
	Persona string

	// Override replaces the persona prompt entirely when non-empty.
	Override string
}

// Build returns the system prompt for a request. genre customizes the
// StoryForge setting; extra is appended verbatim (client-supplied system
// turns).
func Build(opts Options, genre, extra string) (string, error) {
	var base string

	switch {
	case opts.Override != "":
		base = opts.Override
	case opts.Persona == "" || opts.Persona == PersonaStoryForge:
		genre = strings.TrimSpace(genre)
		if genre == "" {
			genre = DefaultGenre
		}
		base = fmt.Sprintf(storyForge, genre)
	case opts.Persona == PersonaHelper:
		base = helper
	case opts.Persona == PersonaNone:
	default:
		return "", fmt.Errorf("unknown persona: %q (available: %v)", opts.Persona, Personas())
	}

	parts := make([]string, 0, 2)
	for _, p := range []string{base, strings.TrimSpace(extra)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
