package script

import (
	"encoding/json"
	"strings"
	"time"

	"shortsmith/internal/lifecycle"
	"shortsmith/internal/textutil"
)

// Speaker identifies the voice reading a segment.
type Speaker string

const (
	Cody     Speaker = "Cody"
	Felippe  Speaker = "Felippe"
	Narrator Speaker = "Narrator"
	ChatGPT  Speaker = "ChatGPT"
	Grok     Speaker = "Grok"
	Claude   Speaker = "Claude"
	Gemini   Speaker = "Gemini"
	Roaster  Speaker = "Roaster"
)

// DefaultSpeaker opens a script when its first block carries no speaker tag.
const DefaultSpeaker = Cody

var knownSpeakers = map[Speaker]struct{}{
	Cody: {}, Felippe: {}, Narrator: {}, ChatGPT: {}, Grok: {}, Claude: {}, Gemini: {}, Roaster: {},
}

// ParseSpeaker matches name exactly against the known speakers.
func ParseSpeaker(name string) (Speaker, bool) {
	s := Speaker(strings.TrimSpace(name))
	_, ok := knownSpeakers[s]
	return s, ok
}

// Channel names a publishing destination attached to a record.
type Channel string

const (
	CodeStack    Channel = "CodeStack"
	News         Channel = "News"
	RedFlagRadar Channel = "RedFlagRadar"
)

// IllustrationType selects how a segment illustration is produced.
type IllustrationType string

const (
	IllustrationQuery           IllustrationType = "query"
	IllustrationImageGeneration IllustrationType = "image_generation"
	IllustrationMermaid         IllustrationType = "mermaid"
	IllustrationCode            IllustrationType = "code"
)

// Illustration describes the visual requested for a segment.
type Illustration struct {
	Type        IllustrationType `json:"type"`
	Description string           `json:"description"`
}

// WordSpan is one aligned word.
type WordSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// VisemeSpan is one aligned mouth shape.
type VisemeSpan struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Viseme string  `json:"viseme"`
}

// Segment is one spoken unit of a script.
type Segment struct {
	Speaker      Speaker       `json:"speaker"`
	Text         string        `json:"text"`
	Illustration *Illustration `json:"illustration,omitempty"`
	MediaSrc     string        `json:"mediaSrc,omitempty"`
	Duration     float64       `json:"duration,omitempty"`
	Alignment    []WordSpan    `json:"alignment,omitempty"`
}

// AudioTrack is one spoken take. A record carries either one take for the
// whole script or one take per segment.
type AudioTrack struct {
	Src       string       `json:"src"`
	Name      string       `json:"name,omitempty"`
	Duration  float64      `json:"duration"`
	Alignment []WordSpan   `json:"alignment,omitempty"`
	Visemes   []VisemeSpan `json:"visemes,omitempty"`
}

// Thumbnail is a cover image attached to a record's output slot.
type Thumbnail struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// MediaFile references a local asset visible to the renderer.
type MediaFile struct {
	Src string `json:"src"`
}

// Background carries renderer visual defaults picked per record.
type Background struct {
	Color          string     `json:"color"`
	MainColor      string     `json:"mainColor"`
	SecondaryColor string     `json:"secondaryColor"`
	Seed           string     `json:"seed"`
	Video          *MediaFile `json:"video,omitempty"`
	GIF            *MediaFile `json:"gif,omitempty"`
}

// OutputFile is a file attached to the record's output slot.
type OutputFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Record is the unit of work: one script with its media and metadata.
type Record struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Status       lifecycle.Status `json:"status"`
	Segments     []Segment        `json:"segments"`
	Audio        []AudioTrack     `json:"audio"`
	Compositions []Composition    `json:"compositions"`
	Channels     []Channel        `json:"channels,omitempty"`
	SEO          string           `json:"seo,omitempty"`
	Settings     json.RawMessage  `json:"settings,omitempty"`
	Thumbnails   []Thumbnail      `json:"thumbnails,omitempty"`
	Background   *Background      `json:"background,omitempty"`
	CreatedAt    time.Time        `json:"createdAt,omitzero"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID           string
	Title        string
	Status       lifecycle.Status
	Compositions []Composition
	SEO          string
	CreatedAt    time.Time
}

// Summary projects the record onto its listing view.
func (r Record) Summary() Summary {
	return Summary{
		ID:           r.ID,
		Title:        r.Title,
		Status:       r.Status,
		Compositions: append([]Composition(nil), r.Compositions...),
		SEO:          r.SEO,
		CreatedAt:    r.CreatedAt,
	}
}

// RequiresPublishing reports whether any record channel is in publishing.
func (r Record) RequiresPublishing(publishing []Channel) bool {
	for _, have := range r.Channels {
		for _, want := range publishing {
			if strings.EqualFold(string(have), string(want)) {
				return true
			}
		}
	}
	return false
}

// NeedsVisemes reports whether any requested composition animates mouths.
func (r Record) NeedsVisemes() bool {
	for _, c := range r.Compositions {
		if c.NeedsLipSync() {
			return true
		}
	}
	return false
}

// SpokenText returns the sanitized text of every segment joined by sep.
func (r Record) SpokenText(sep string) string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if text := textutil.SanitizeCaption(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, sep)
}

// RawText returns the unsanitized segment text joined by sep.
func (r Record) RawText(sep string) string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, sep)
}

// ThumbnailFor returns the first thumbnail whose name mentions orientation.
func (r Record) ThumbnailFor(orientation Orientation) (Thumbnail, bool) {
	needle := strings.ToLower(string(orientation))
	for _, thumb := range r.Thumbnails {
		if strings.Contains(strings.ToLower(thumb.Name), needle) || strings.Contains(strings.ToLower(thumb.Src), needle) {
			return thumb, true
		}
	}
	return Thumbnail{}, false
}
