package docstore

import (
	"errors"
	"fmt"
	"strings"

	"shortsmith/internal/script"
	"shortsmith/internal/textutil"
)

// EncodeSegments turns segments into content blocks. A divider precedes every
// segment whose speaker differs from the previous segment's. Segments with an
// entry in media become a two-column block (text left, media right, captioned
// with the illustration description); the rest become paragraphs.
//
// A segment whose speaker the divider toggle would not reproduce on decode
// (any speaker outside the two hosts, or a host out of turn) gets a leading
// `[Speaker]` tag unless its text already names it.
func EncodeSegments(segments []script.Segment, media map[int]Media) []Block {
	blocks := make([]Block, 0, len(segments)*2)
	decoded := script.DefaultSpeaker
	for i, seg := range segments {
		if i > 0 && seg.Speaker != segments[i-1].Speaker {
			blocks = append(blocks, Divider{})
			decoded = nextSpeaker(decoded)
		}
		text := seg.Text
		if strings.TrimSpace(text) != "" {
			if speaker, ok := taggedSpeaker(text); ok {
				decoded = speaker
			}
			if decoded != seg.Speaker {
				text = fmt.Sprintf("[%s] %s", seg.Speaker, text)
				decoded = seg.Speaker
			}
		}
		m, ok := media[i]
		if !ok {
			blocks = append(blocks, Paragraph{Text: text})
			continue
		}
		if m.Caption == "" && seg.Illustration != nil {
			m.Caption = seg.Illustration.Description
		}
		blocks = append(blocks, TwoColumn{Left: Paragraph{Text: text}, Right: m})
	}
	return blocks
}

// DecodeSegments reconstructs segments from content blocks.
//
// The current speaker starts as DefaultSpeaker, so a `[Name]` tag in the
// first block seeds it. Every divider toggles it and any known speaker tag in
// a block's text overrides it. Empty paragraphs and block types the codec
// does not model are skipped.
func DecodeSegments(blocks []Block) ([]script.Segment, error) {
	current := script.DefaultSpeaker
	segments := make([]script.Segment, 0, len(blocks))
	for i, block := range blocks {
		if block == nil {
			return nil, fmt.Errorf("block %d: nil block", i)
		}
		var seg *script.Segment
		current, seg = block.Decode(current)
		if seg != nil {
			segments = append(segments, *seg)
		}
	}
	if len(segments) == 0 {
		return nil, errors.New("no segments in page content")
	}
	return segments, nil
}

// nextSpeaker is the speaker after a divider: the two hosts alternate, and any
// other speaker hands back to the default host.
func nextSpeaker(current script.Speaker) script.Speaker {
	if current == script.Cody {
		return script.Felippe
	}
	return script.Cody
}

func taggedSpeaker(text string) (script.Speaker, bool) {
	tag, ok := textutil.BracketTag(text)
	if !ok {
		return "", false
	}
	return script.ParseSpeaker(tag)
}
