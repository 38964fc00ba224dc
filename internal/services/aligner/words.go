package aligner

import (
	"context"
	"strconv"
	"strings"

	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

const wordsPath = "/align"

// Words aligns transcripts to audio at word granularity.
type Words struct {
	client
}

// NewWords constructs a word-alignment client.
func NewWords(cfg Config, opts ...Option) *Words {
	return &Words{client: newClient("aligner", cfg, opts...)}
}

type fragments struct {
	Fragments []struct {
		Begin string   `json:"begin"`
		End   string   `json:"end"`
		ID    string   `json:"id"`
		Lines []string `json:"lines"`
	} `json:"fragments"`
}

// Align returns word spans for text spoken in audioPath and the duration
// covered by the last span.
func (w *Words) Align(ctx context.Context, audioPath, text string) ([]script.WordSpan, float64, error) {
	var resp fragments
	if err := w.post(ctx, wordsPath, audioPath, text, &resp); err != nil {
		return nil, 0, err
	}
	spans := make([]script.WordSpan, 0, len(resp.Fragments))
	var duration float64
	for _, frag := range resp.Fragments {
		word := strings.TrimSpace(strings.Join(frag.Lines, " "))
		if word == "" {
			continue
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(frag.Begin), 64)
		if err != nil {
			return nil, 0, services.Wrap(services.ErrExternalTool, "aligner", "parse fragment", frag.ID, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(frag.End), 64)
		if err != nil {
			return nil, 0, services.Wrap(services.ErrExternalTool, "aligner", "parse fragment", frag.ID, err)
		}
		spans = append(spans, script.WordSpan{Start: start, End: end, Text: word})
		if end > duration {
			duration = end
		}
	}
	if len(spans) == 0 {
		return nil, 0, services.Wrap(services.ErrExternalTool, "aligner", "align", "service returned no fragments", nil)
	}
	return spans, duration, nil
}
