package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"shortsmith/internal/script"
)

type seoPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Hashtags    json.RawMessage `json:"hashtags"`
}

// DecodeSEO parses an SEO_WRITER response. Hashtags may arrive as an array
// or as one space-separated string; every hashtag is normalized to start
// with '#'.
func DecodeSEO(content string) (script.SEO, error) {
	var payload seoPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return script.SEO{}, err
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return script.SEO{}, errors.New("seo response has no title")
	}
	seo := script.SEO{
		Title:       title,
		Description: strings.TrimSpace(payload.Description),
	}
	for _, tag := range payload.Tags {
		if tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")); tag != "" {
			seo.Tags = append(seo.Tags, tag)
		}
	}
	for _, tag := range decodeHashtags(payload.Hashtags) {
		tag = strings.TrimPrefix(tag, "#")
		if tag != "" {
			seo.Hashtags = append(seo.Hashtags, "#"+tag)
		}
	}
	return seo, nil
}

func decodeHashtags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, strings.Fields(item)...)
		}
		return out
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return strings.Fields(joined)
	}
	return nil
}
