package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeLLMJSON decodes a model reply into target. Replies wrapped in a code
// fence or surrounded by prose are retried on the extracted JSON.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	err := json.Unmarshal([]byte(trimmed), target)
	if err == nil {
		return nil
	}
	extracted := extractJSON(trimmed)
	if extracted == "" || extracted == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", err, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w (extracted payload snippet: %s)", err, snippet(extracted))
	}
	return nil
}

// extractJSON strips a code fence and returns the outermost object or array
// in content. Content without either is returned trimmed.
func extractJSON(content string) string {
	body := strings.TrimSpace(unfence(content))
	if body == "" || body[0] == '{' || body[0] == '[' {
		return body
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(body, pair[0])
		end := strings.LastIndex(body, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(body[start : end+1])
		}
	}
	return body
}

func unfence(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return strings.TrimSpace(content)
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// snippet flattens content to one line of at most 160 runes for errors.
func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return clean
}
