package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Action is a structured game action embedded in a reply, for example
// {"action":"add_item","item":{"name":"Rusty Key"}}.
type Action map[string]any

// Name returns the action's "action" field.
func (a Action) Name() string {
	name, _ := a["action"].(string)
	return name
}

// ExtractActions returns the JSON objects carrying an "action" key found in
// text, in order of appearance. Models regularly emit slightly broken JSON
// (trailing commas, single quotes, a missing closing brace at the end of the
// reply), so each candidate gets one repair attempt before it is skipped.
func ExtractActions(text string) []Action {
	var actions []Action

	for pos := 0; pos < len(text); {
		start, candidate := nextObject(text, pos)
		if start < 0 {
			break
		}
		// Without the word nothing inside can be an action either.
		if !strings.Contains(candidate, "action") {
			pos = start + len(candidate)
			continue
		}

		a, strict := decodeAction(candidate)
		switch {
		case a != nil:
			actions = append(actions, a)
			pos = start + len(candidate)
		case strict:
			pos = start + len(candidate)
		default:
			// A stray brace in the prose swallowed what follows; rescan
			// from just past it.
			pos = start + 1
		}
	}

	return actions
}

// decodeAction parses candidate as an action. strict reports whether the
// candidate was valid JSON as written.
func decodeAction(candidate string) (a Action, strict bool) {
	if err := json.Unmarshal([]byte(candidate), &a); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return nil, false
		}
		a = nil
		if err := json.Unmarshal([]byte(repaired), &a); err != nil {
			return nil, false
		}
		if a.Name() == "" {
			return nil, false
		}
		return a, false
	}
	if a.Name() == "" {
		return nil, true
	}
	return a, true
}

// nextObject finds the first top-level brace-delimited segment at or after
// from and returns its offset, or -1. An object left open at the end of the
// text is returned as-is so the repair step can close it.
func nextObject(text string, from int) (int, string) {
	var (
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)

	for i, r := range text[from:] {
		i += from
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return start, text[start : i+1]
			}
		}
	}

	if start >= 0 {
		return start, text[start:]
	}
	return -1, ""
}

var hpMarker = regexp.MustCompile(`\(\s*([+-]\d+)\s*HP\s*\)`)

// HPDelta sums the health markers such as "(-5 HP)" or "(+10 HP)" in text.
func HPDelta(text string) int {
	total := 0
	for _, m := range hpMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n
	}
	return total
}
