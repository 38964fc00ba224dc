package docstore

import (
	"context"
	"strings"
	"testing"

	"shortsmith/internal/notion"
	"shortsmith/internal/script"
)

func TestEncodeSegmentsPlacesDividersOnSpeakerChange(t *testing.T) {
	segments := []script.Segment{
		{Speaker: script.Cody, Text: "one"},
		{Speaker: script.Cody, Text: "two"},
		{Speaker: script.Felippe, Text: "three"},
		{Speaker: script.Felippe, Text: "four"},
		{Speaker: script.Cody, Text: "five"},
	}
	blocks := EncodeSegments(segments, nil)

	var dividers []int
	for i, b := range blocks {
		if b.Kind() == KindDivider {
			dividers = append(dividers, i)
		}
	}
	if len(dividers) != 2 {
		t.Fatalf("expected 2 dividers, got %d in %v", len(dividers), blocks)
	}
	// [p0 p1 | p2 p3 | p4] renders as p p D p p D p.
	if dividers[0] != 2 || dividers[1] != 5 {
		t.Fatalf("unexpected divider positions %v", dividers)
	}
}

func TestEncodeSegmentsBuildsTwoColumnWithCaption(t *testing.T) {
	segments := []script.Segment{{
		Speaker:      script.Cody,
		Text:         "look at this",
		Illustration: &script.Illustration{Type: script.IllustrationImageGeneration, Description: "a cat"},
	}}
	blocks := EncodeSegments(segments, map[int]Media{0: {Type: MediaImage, UploadID: "up-1"}})
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	col, ok := blocks[0].(TwoColumn)
	if !ok {
		t.Fatalf("expected TwoColumn, got %T", blocks[0])
	}
	media := col.Right.(Media)
	if media.Caption != "a cat" {
		t.Fatalf("expected caption from illustration, got %q", media.Caption)
	}
	wire := col.Render()
	if wire.Type != "column_list" || len(wire.ColumnList.Children) != 2 {
		t.Fatalf("unexpected wire shape %+v", wire)
	}
	image := wire.ColumnList.Children[1].Column.Children[0].Image
	if image == nil || image.FileUpload == nil || image.FileUpload.ID != "up-1" {
		t.Fatalf("expected file upload reference, got %+v", image)
	}
}

func TestRoundTripPreservesSpeakerTextAndMedia(t *testing.T) {
	cases := []struct {
		name     string
		segments []script.Segment
		media    map[int]Media
	}{
		{
			name:     "single text segment",
			segments: []script.Segment{{Speaker: script.Cody, Text: "hello"}},
		},
		{
			name: "consecutive same speaker",
			segments: []script.Segment{
				{Speaker: script.Cody, Text: "a"},
				{Speaker: script.Cody, Text: "b"},
			},
		},
		{
			name: "alternating hosts with media",
			segments: []script.Segment{
				{Speaker: script.Cody, Text: "a"},
				{Speaker: script.Felippe, Text: "b"},
				{Speaker: script.Felippe, Text: "c"},
				{Speaker: script.Cody, Text: "d"},
			},
			media: map[int]Media{1: {Type: MediaImage, URL: "https://x/1.png"}, 3: {Type: MediaVideo, URL: "https://x/2.mp4"}},
		},
		{
			name: "tagged opening speaker",
			segments: []script.Segment{
				{Speaker: script.Felippe, Text: "[Felippe] hi"},
				{Speaker: script.Cody, Text: "hey"},
			},
		},
		{
			name: "untagged guest voice",
			segments: []script.Segment{
				{Speaker: script.Roaster, Text: "intro"},
				{Speaker: script.Roaster, Text: "photo", MediaSrc: "p.png"},
				{Speaker: script.Narrator, Text: "verdict"},
			},
			media: map[int]Media{1: {Type: MediaImage, URL: "https://x/p.png"}},
		},
		{
			name: "host opening out of turn",
			segments: []script.Segment{
				{Speaker: script.Felippe, Text: "hi"},
				{Speaker: script.Cody, Text: "hey"},
				{Speaker: script.Felippe, Text: "bye"},
			},
		},
		{
			name: "guest between hosts",
			segments: []script.Segment{
				{Speaker: script.Cody, Text: "a"},
				{Speaker: script.Grok, Text: "b"},
				{Speaker: script.Cody, Text: "c"},
				{Speaker: script.Felippe, Text: "d"},
			},
		},
		{
			name: "text tagged with another speaker",
			segments: []script.Segment{
				{Speaker: script.Narrator, Text: "[Grok] said this"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			encoded := EncodeSegments(tc.segments, tc.media)
			parsed := make([]Block, 0, len(encoded))
			for _, b := range encoded {
				got, err := ParseBlock(ctx, b.Render(), nil)
				if err != nil {
					t.Fatalf("parse %T: %v", b, err)
				}
				parsed = append(parsed, got)
			}
			decoded, err := DecodeSegments(parsed)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(decoded) != len(tc.segments) {
				t.Fatalf("expected %d segments, got %d", len(tc.segments), len(decoded))
			}
			for i, want := range tc.segments {
				got := decoded[i]
				if got.Speaker != want.Speaker || !sameSpokenText(got, want) {
					t.Fatalf("segment %d: got (%s, %q), want (%s, %q)", i, got.Speaker, got.Text, want.Speaker, want.Text)
				}
				_, hasMedia := tc.media[i]
				if (got.MediaSrc != "") != hasMedia {
					t.Fatalf("segment %d: media presence %v, want %v", i, got.MediaSrc != "", hasMedia)
				}
			}
		})
	}
}

// sameSpokenText accepts the speaker tag encoding adds to text the divider
// toggle alone would misattribute.
func sameSpokenText(got, want script.Segment) bool {
	return got.Text == want.Text || got.Text == "["+string(want.Speaker)+"] "+want.Text
}

func TestEncodeSegmentsTagsOnlyWhenToggleDisagrees(t *testing.T) {
	segments := []script.Segment{
		{Speaker: script.Roaster, Text: "one"},
		{Speaker: script.Roaster, Text: "two"},
		{Speaker: script.Cody, Text: "three"},
		{Speaker: script.Felippe, Text: "[Felippe] four"},
	}
	var texts []string
	for _, b := range EncodeSegments(segments, nil) {
		if p, ok := b.(Paragraph); ok {
			texts = append(texts, p.Text)
		}
	}
	want := []string{"[Roaster] one", "two", "three", "[Felippe] four"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Fatalf("paragraphs = %q, want %q", texts, want)
	}

	decoded, err := DecodeSegments(EncodeSegments(segments, nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again := EncodeSegments(decoded, nil)
	if p := again[0].(Paragraph); p.Text != "[Roaster] one" {
		t.Fatalf("re-encoding should not tag twice, got %q", p.Text)
	}
}

func TestDecodeSegmentsTagOverridesDividerToggle(t *testing.T) {
	blocks := []Block{
		Paragraph{Text: "opening"},
		Divider{},
		Paragraph{Text: "[Grok] my turn"},
		Paragraph{Text: "still me"},
		Divider{},
		Paragraph{Text: "back"},
	}
	segments, err := DecodeSegments(blocks)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []script.Speaker{script.Cody, script.Grok, script.Grok, script.Cody}
	for i, speaker := range want {
		if segments[i].Speaker != speaker {
			t.Fatalf("segment %d: got %s, want %s", i, segments[i].Speaker, speaker)
		}
	}
}

func TestDecodeSegmentsSkipsEmptyAndUnsupported(t *testing.T) {
	segments, err := DecodeSegments([]Block{
		Unsupported{Type: "heading_1"},
		Paragraph{Text: "   "},
		Paragraph{Text: "kept"},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "kept" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestDecodeSegmentsRejectsEmptyContent(t *testing.T) {
	if _, err := DecodeSegments([]Block{Divider{}}); err == nil {
		t.Fatal("expected error for content without segments")
	}
}

func TestParseBlockRejectsMalformedColumns(t *testing.T) {
	raw := notion.Block{
		Type: "column_list",
		ColumnList: &notion.Container{Children: []notion.Block{
			{Type: "column", Column: &notion.Container{Children: []notion.Block{{Type: "heading_2"}}}},
			{Type: "column", Column: &notion.Container{Children: []notion.Block{{Type: "paragraph", Paragraph: &notion.Paragraph{}}}}},
		}},
	}
	_, err := ParseBlock(context.Background(), raw, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported column content error, got %v", err)
	}

	raw.ColumnList.Children = raw.ColumnList.Children[:1]
	if _, err := ParseBlock(context.Background(), raw, nil); err == nil {
		t.Fatal("expected error for single column")
	}
}

func TestParagraphRenderSplitsLongText(t *testing.T) {
	long := strings.Repeat("x", notion.MaxRichTextLength+10)
	wire := Paragraph{Text: long}.Render()
	if len(wire.Paragraph.RichText) != 2 {
		t.Fatalf("expected 2 rich text runs, got %d", len(wire.Paragraph.RichText))
	}
	parsed, err := ParseBlock(context.Background(), wire, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.(Paragraph).Text != long {
		t.Fatal("long text did not survive the round trip")
	}
}
