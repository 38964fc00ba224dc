package docstore

import (
	"context"
	"fmt"
	"strings"

	"shortsmith/internal/notion"
	"shortsmith/internal/script"
)

// BlockKind discriminates the Block variants.
type BlockKind string

const (
	KindDivider     BlockKind = "divider"
	KindParagraph   BlockKind = "paragraph"
	KindTwoColumn   BlockKind = "column_list"
	KindMedia       BlockKind = "media"
	KindUnsupported BlockKind = "unsupported"
)

// Block is one node of a script's page content. Every variant renders to the
// store's wire shape, and ParseBlock maps wire shapes back to variants.
//
// Decode reads the block in document order: given the speaker in effect
// before it, it returns the speaker in effect after it and the segment the
// block carries, if any.
type Block interface {
	Kind() BlockKind
	Render() notion.Block
	Decode(current script.Speaker) (script.Speaker, *script.Segment)
}

// Cell is the content of one column of a TwoColumn block.
type Cell interface {
	Block
	cell()
}

// Divider marks a speaker change.
type Divider struct{}

// Paragraph is a text-only segment.
type Paragraph struct {
	Text string
}

// MediaType is the kind of media shown next to a segment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is an image or video cell. Encoding sets UploadID; decoding sets URL.
type Media struct {
	Type     MediaType
	UploadID string
	URL      string
	Caption  string
}

// TwoColumn pairs a segment's text with its media.
type TwoColumn struct {
	Left  Cell
	Right Cell
}

// Unsupported is any block type the codec does not model.
type Unsupported struct {
	Type string
}

func (Divider) Kind() BlockKind     { return KindDivider }
func (Paragraph) Kind() BlockKind   { return KindParagraph }
func (Media) Kind() BlockKind       { return KindMedia }
func (TwoColumn) Kind() BlockKind   { return KindTwoColumn }
func (Unsupported) Kind() BlockKind { return KindUnsupported }

func (Paragraph) cell() {}
func (Media) cell()     {}

func (Divider) Render() notion.Block {
	return notion.Block{Type: "divider", Divider: &notion.Empty{}}
}

func (p Paragraph) Render() notion.Block {
	return notion.Block{Type: "paragraph", Paragraph: &notion.Paragraph{RichText: notion.Text(p.Text)}}
}

func (m Media) Render() notion.Block {
	file := &notion.FileObject{}
	switch {
	case m.UploadID != "":
		file.Type = "file_upload"
		file.FileUpload = &notion.FileUploadRef{ID: m.UploadID}
	default:
		file.Type = "external"
		file.External = &notion.ExternalFile{URL: m.URL}
	}
	if m.Caption != "" {
		file.Caption = notion.Text(m.Caption)
	}
	block := notion.Block{Type: string(m.Type)}
	if m.Type == MediaVideo {
		block.Video = file
	} else {
		block.Type = string(MediaImage)
		block.Image = file
	}
	return block
}

func (t TwoColumn) Render() notion.Block {
	column := func(c Cell) notion.Block {
		return notion.Block{Type: "column", Column: &notion.Container{Children: []notion.Block{c.Render()}}}
	}
	return notion.Block{
		Type:       "column_list",
		ColumnList: &notion.Container{Children: []notion.Block{column(t.Left), column(t.Right)}},
	}
}

func (u Unsupported) Render() notion.Block {
	return notion.Block{Type: u.Type}
}

// Decode advances to the next speaker; dividers carry no segment.
func (Divider) Decode(current script.Speaker) (script.Speaker, *script.Segment) {
	return nextSpeaker(current), nil
}

func (p Paragraph) Decode(current script.Speaker) (script.Speaker, *script.Segment) {
	return textSegment(current, p.Text, "")
}

func (t TwoColumn) Decode(current script.Speaker) (script.Speaker, *script.Segment) {
	return textSegment(current, t.Text(), t.MediaURL())
}

// Decode skips a bare media block; media only counts inside a TwoColumn.
func (Media) Decode(current script.Speaker) (script.Speaker, *script.Segment) {
	return current, nil
}

func (Unsupported) Decode(current script.Speaker) (script.Speaker, *script.Segment) {
	return current, nil
}

// textSegment applies a speaker tag found in text and returns the segment.
// Blank text yields no segment.
func textSegment(current script.Speaker, text, media string) (script.Speaker, *script.Segment) {
	if strings.TrimSpace(text) == "" {
		return current, nil
	}
	if speaker, ok := taggedSpeaker(text); ok {
		current = speaker
	}
	return current, &script.Segment{Speaker: current, Text: text, MediaSrc: media}
}

// Text returns the paragraph text of a TwoColumn, joining text cells by "\n".
func (t TwoColumn) Text() string {
	var out string
	for _, c := range []Cell{t.Left, t.Right} {
		if p, ok := c.(Paragraph); ok {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}

// MediaURL returns the location of the first media cell.
func (t TwoColumn) MediaURL() string {
	for _, c := range []Cell{t.Left, t.Right} {
		if m, ok := c.(Media); ok {
			return m.URL
		}
	}
	return ""
}

// ChildLister fetches the children of a nested block.
type ChildLister interface {
	ListAllBlockChildren(ctx context.Context, blockID string) ([]notion.Block, error)
}

// ParseBlock maps a wire block to its variant. Column lists are resolved by
// fetching their columns and each column's first child, unless the children
// are already inlined.
func ParseBlock(ctx context.Context, raw notion.Block, children ChildLister) (Block, error) {
	switch raw.Type {
	case "divider":
		return Divider{}, nil
	case "paragraph":
		if raw.Paragraph == nil {
			return Paragraph{}, nil
		}
		return Paragraph{Text: notion.PlainText(raw.Paragraph.RichText)}, nil
	case "column_list":
		return parseColumnList(ctx, raw, children)
	case "image", "video":
		if cell, ok := parseMedia(raw); ok {
			return cell, nil
		}
		return Unsupported{Type: raw.Type}, nil
	default:
		return Unsupported{Type: raw.Type}, nil
	}
}

func parseColumnList(ctx context.Context, raw notion.Block, children ChildLister) (Block, error) {
	columns, err := nestedChildren(ctx, raw, raw.ColumnList, children)
	if err != nil {
		return nil, err
	}
	if len(columns) != 2 {
		return nil, fmt.Errorf("column list %s: expected 2 columns, found %d", raw.ID, len(columns))
	}
	cells := make([]Cell, 0, 2)
	for i, column := range columns {
		if column.Type != "column" {
			return nil, fmt.Errorf("column list %s: child %d is %q, not a column", raw.ID, i, column.Type)
		}
		content, err := nestedChildren(ctx, column, column.Column, children)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("column list %s: column %d is empty", raw.ID, i)
		}
		first := content[0]
		switch first.Type {
		case "paragraph":
			var text string
			if first.Paragraph != nil {
				text = notion.PlainText(first.Paragraph.RichText)
			}
			cells = append(cells, Paragraph{Text: text})
		case "image", "video":
			media, ok := parseMedia(first)
			if !ok {
				return nil, fmt.Errorf("column list %s: column %d %s has no file", raw.ID, i, first.Type)
			}
			cells = append(cells, media)
		default:
			return nil, fmt.Errorf("column list %s: column %d holds unsupported %q", raw.ID, i, first.Type)
		}
	}
	return TwoColumn{Left: cells[0], Right: cells[1]}, nil
}

func nestedChildren(ctx context.Context, raw notion.Block, inline *notion.Container, children ChildLister) ([]notion.Block, error) {
	if inline != nil && len(inline.Children) > 0 {
		return inline.Children, nil
	}
	if raw.ID == "" || children == nil {
		return nil, nil
	}
	list, err := children.ListAllBlockChildren(ctx, raw.ID)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", raw.ID, err)
	}
	return list, nil
}

func parseMedia(raw notion.Block) (Media, bool) {
	file := raw.Image
	kind := MediaImage
	if raw.Type == "video" {
		file = raw.Video
		kind = MediaVideo
	}
	if file == nil {
		return Media{}, false
	}
	media := Media{Type: kind, URL: file.URL(), Caption: notion.PlainText(file.Caption)}
	if file.FileUpload != nil {
		media.UploadID = file.FileUpload.ID
	}
	return media, true
}
