package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Reasoning models prefix their answer with a <think> block.
var thinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ExtractJSON pulls the first JSON object or array out of a raw model
// response, tolerating <think> blocks, markdown fences and surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkBlock.ReplaceAllString(response, "")

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		candidate, ok := firstBalanced(cleaned, pair[0], pair[1])
		if ok && json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if trimmed := strings.TrimSpace(cleaned); json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// firstBalanced returns the first substring delimited by a balanced open/close
// pair, respecting string literals and escapes.
func firstBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	var depth int
	var inString, escaped bool
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts the JSON payload of a model response and decodes
// it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T
	payload, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}
