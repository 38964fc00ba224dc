package script

import "strings"

// SEO is the structured metadata produced for publishing.
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Hashtags    []string `json:"hashtags"`
}

// Text renders the blob stored on the record. Hashtags win over tags.
func (s SEO) Text() string {
	var tail string
	switch {
	case len(s.Hashtags) > 0:
		tail = strings.Join(s.Hashtags, " ")
	case len(s.Tags) > 0:
		tail = "#" + strings.Join(s.Tags, " #")
	}
	return strings.TrimSpace(s.Title) + "\n\n" + strings.TrimSpace(s.Description) + "\n\n" + tail
}

// PublishDescription is the video description: the SEO description followed by hashtags.
func (s SEO) PublishDescription() string {
	desc := strings.TrimSpace(s.Description)
	if len(s.Hashtags) == 0 {
		return desc
	}
	return desc + "\n\n" + strings.Join(s.Hashtags, " ")
}

// ParseSEOText recovers an SEO from a stored blob. Missing sections stay empty.
func ParseSEOText(text string) SEO {
	parts := strings.SplitN(text, "\n\n", 3)
	var seo SEO
	if len(parts) > 0 {
		seo.Title = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		seo.Description = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		for _, field := range strings.Fields(parts[2]) {
			if strings.HasPrefix(field, "#") {
				seo.Hashtags = append(seo.Hashtags, field)
			}
		}
	}
	return seo
}
