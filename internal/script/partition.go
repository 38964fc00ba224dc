package script

import (
	"fmt"

	"shortsmith/internal/textutil"
)

// PartitionAlignment spreads the spans of a single whole-script take across
// segments in order, giving each segment as many spans as its sanitized text
// has words. Each segment's Duration becomes the time from its first span's
// start to its last span's end.
func PartitionAlignment(segments []Segment, spans []WordSpan) error {
	cursor := 0
	for i := range segments {
		words := textutil.WordCount(textutil.SanitizeCaption(segments[i].Text))
		if cursor+words > len(spans) {
			return fmt.Errorf("alignment has %d spans, segment %d needs %d more", len(spans), i, cursor+words-len(spans))
		}
		part := spans[cursor : cursor+words]
		cursor += words
		segments[i].Alignment = append([]WordSpan(nil), part...)
		if len(part) > 0 {
			segments[i].Duration = part[len(part)-1].End - part[0].Start
		} else {
			segments[i].Duration = 0
		}
	}
	return nil
}

// AttachTakes copies each per-segment take's alignment and duration onto its
// segment. len(tracks) must equal len(segments).
func AttachTakes(segments []Segment, tracks []AudioTrack) error {
	if len(tracks) != len(segments) {
		return fmt.Errorf("have %d takes for %d segments", len(tracks), len(segments))
	}
	for i := range segments {
		segments[i].Alignment = append([]WordSpan(nil), tracks[i].Alignment...)
		segments[i].Duration = tracks[i].Duration
	}
	return nil
}
