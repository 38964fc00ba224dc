package aligner

import (
	"context"
	"strings"

	"shortsmith/internal/script"
)

const (
	visemesPath   = "/align"
	restingViseme = "X"
)

// phoneVisemes maps Brazilian Portuguese IPA phones onto mouth shapes.
var phoneVisemes = map[string]string{
	"a": "A", "ɐ": "A", "ɐ̃": "A", "i": "A", "ĩ": "A",
	"k": "B", "t": "B", "d": "B", "c": "B", "ɛ": "B", "j": "B", "s": "B",
	"e": "B", "n": "B", "ẽ": "B", "dʒ": "B", "ɟ": "B", "x": "B", "ʒ": "B",
	"z": "B", "j̃": "B", "tʃ": "B", "ɡ": "B", "ʃ": "B", "ɲ": "B",
	"l": "C", "ʎ": "C",
	"u": "D", "ũ": "D",
	"ɾ": "E", "o": "E", "w": "E", "w̃": "E", "õ": "E", "ɔ": "E",
	"f": "F", "v": "F",
	"m": "X", "p": "X", "b": "X", "silence": "X",
}

// VisemeFor maps a phone label to its mouth shape. Unknown phones rest.
func VisemeFor(phone string) string {
	if v, ok := phoneVisemes[strings.TrimSpace(phone)]; ok {
		return v
	}
	return restingViseme
}

// Visemes aligns transcripts to audio at phone granularity.
type Visemes struct {
	client
}

// NewVisemes constructs a viseme-alignment client.
func NewVisemes(cfg Config, opts ...Option) *Visemes {
	return &Visemes{client: newClient("viseme-aligner", cfg, opts...)}
}

type interval [3]any

type montreal struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Tiers struct {
		Phones struct {
			Entries []interval `json:"entries"`
		} `json:"phones"`
	} `json:"tiers"`
}

// Align returns coalesced viseme spans for text spoken in audioPath.
func (v *Visemes) Align(ctx context.Context, audioPath, text string) ([]script.VisemeSpan, error) {
	var resp montreal
	if err := v.post(ctx, visemesPath, audioPath, text, &resp); err != nil {
		return nil, err
	}
	spans := make([]script.VisemeSpan, 0, len(resp.Tiers.Phones.Entries))
	for _, entry := range resp.Tiers.Phones.Entries {
		start, ok1 := entry[0].(float64)
		end, ok2 := entry[1].(float64)
		phone, ok3 := entry[2].(string)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		spans = append(spans, script.VisemeSpan{Start: start, End: end, Viseme: VisemeFor(phone)})
	}
	return Coalesce(spans), nil
}

// Coalesce merges adjacent spans sharing a viseme.
func Coalesce(spans []script.VisemeSpan) []script.VisemeSpan {
	out := make([]script.VisemeSpan, 0, len(spans))
	for _, span := range spans {
		if n := len(out); n > 0 && out[n-1].Viseme == span.Viseme {
			if span.End > out[n-1].End {
				out[n-1].End = span.End
			}
			continue
		}
		out = append(out, span)
	}
	return out
}
