package producer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/textutil"
)

// transcriptHeader primes human narrators reading the exported transcript.
const transcriptHeader = `Read aloud this conversation between Felippe and his dog Cody. Cody has a curious and playful personality with an animated character like voice, while Felippe is knowledgeable and enthusiastic.
Felippe is known for his vast knowledge, and Cody is a curious dog who is always asking questions about the world, both are Brazilian Portuguese speakers and have a super very fast-paced, energetic, and enthusiastic way of speaking.`

type draftSegment struct {
	Speaker      string               `json:"speaker"`
	Text         string               `json:"text"`
	Illustration *script.Illustration `json:"illustration,omitempty"`
}

type draft struct {
	Title    string         `json:"title"`
	Segments []draftSegment `json:"segments"`
}

// decodeDrafts accepts the reviewer's reply as one script object or an
// array of them.
func decodeDrafts(content string) ([]draft, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	var drafts []draft
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &drafts); err != nil {
			return nil, err
		}
	} else {
		var one draft
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		drafts = []draft{one}
	}
	if len(drafts) == 0 {
		return nil, errors.New("review returned no scripts")
	}
	return drafts, nil
}

// record converts the draft into a record. Unknown speakers fall back to the
// default narrator and empty segments are dropped.
func (d draft) record(logger *slog.Logger) (script.Record, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return script.Record{}, services.Wrap(services.ErrValidation, "producer", "draft", "script has no title", nil)
	}
	rec := script.Record{Title: title}
	for i, seg := range d.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker, ok := script.ParseSpeaker(seg.Speaker)
		if !ok {
			logging.WarnWithContext(logger, "unknown speaker in draft", "draft_unknown_speaker",
				logging.String("title", title),
				logging.Int("segment", i),
				logging.String("speaker", seg.Speaker),
				logging.String(logging.FieldImpact, "segment is voiced by "+string(script.DefaultSpeaker)),
			)
			speaker = script.DefaultSpeaker
		}
		out := script.Segment{Speaker: speaker, Text: text}
		if seg.Illustration != nil && strings.TrimSpace(seg.Illustration.Description) != "" {
			ill := *seg.Illustration
			if ill.Type == "" {
				ill.Type = script.IllustrationImageGeneration
			}
			out.Illustration = &ill
		}
		rec.Segments = append(rec.Segments, out)
	}
	if len(rec.Segments) == 0 {
		return script.Record{}, services.Wrap(services.ErrValidation, "producer", "draft", fmt.Sprintf("script %q has no segments", title), nil)
	}
	return rec, nil
}

// writeTranscript exports the script as "Speaker: text" lines under the
// output directory and returns the file path.
func writeTranscript(dir string, rec script.Record) (string, error) {
	var b strings.Builder
	b.WriteString(transcriptHeader)
	b.WriteString("\n\n")
	for _, seg := range rec.Segments {
		fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, seg.Text)
	}
	path := filepath.Join(dir, textutil.SanitizeFileName(rec.Title)+".txt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "producer", "transcript", dir, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "producer", "transcript", path, err)
	}
	return path, nil
}
