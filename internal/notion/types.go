package notion

import "time"

// MaxPageSize is the largest page_size the API accepts.
const MaxPageSize = 100

// MaxRichTextLength is the largest content accepted in one rich text item.
const MaxRichTextLength = 2000

// Empty marshals to {} for block types that carry no payload.
type Empty struct{}

// TextContent is the text payload of a rich text item.
type TextContent struct {
	Content string `json:"content"`
}

// RichText is one styled run of text.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// PlainText concatenates rich text runs. Runs are split at arbitrary
// offsets, so no separator is inserted.
func PlainText(runs []RichText) string {
	var out string
	for _, run := range runs {
		switch {
		case run.PlainText != "":
			out += run.PlainText
		case run.Text != nil:
			out += run.Text.Content
		}
	}
	return out
}

// Text builds rich text from s, splitting it into runs no longer than
// MaxRichTextLength runes.
func Text(s string) []RichText {
	runes := []rune(s)
	if len(runes) == 0 {
		return []RichText{{Type: "text", Text: &TextContent{Content: ""}}}
	}
	out := make([]RichText, 0, len(runes)/MaxRichTextLength+1)
	for start := 0; start < len(runes); start += MaxRichTextLength {
		end := min(start+MaxRichTextLength, len(runes))
		out = append(out, RichText{Type: "text", Text: &TextContent{Content: string(runes[start:end])}})
	}
	return out
}

// FileUploadRef points at a completed file upload.
type FileUploadRef struct {
	ID string `json:"id"`
}

// HostedFile is a file stored by the document store.
type HostedFile struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// ExternalFile is a file hosted elsewhere.
type ExternalFile struct {
	URL string `json:"url"`
}

// FileObject is a file reference inside a media block or files property.
type FileObject struct {
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type"`
	FileUpload *FileUploadRef `json:"file_upload,omitempty"`
	File       *HostedFile    `json:"file,omitempty"`
	External   *ExternalFile  `json:"external,omitempty"`
	Caption    []RichText     `json:"caption,omitempty"`
}

// URL returns the downloadable location of the file, if any.
func (f FileObject) URL() string {
	switch {
	case f.File != nil:
		return f.File.URL
	case f.External != nil:
		return f.External.URL
	default:
		return ""
	}
}

// UploadedFile references a completed upload by id.
func UploadedFile(name, uploadID string) FileObject {
	return FileObject{Name: name, Type: "file_upload", FileUpload: &FileUploadRef{ID: uploadID}}
}

// Paragraph is a paragraph block payload.
type Paragraph struct {
	RichText []RichText `json:"rich_text"`
}

// Container is the payload of column_list and column blocks.
type Container struct {
	Children []Block `json:"children,omitempty"`
}

// Block is a node of page content.
type Block struct {
	Object      string      `json:"object,omitempty"`
	ID          string      `json:"id,omitempty"`
	Type        string      `json:"type"`
	HasChildren bool        `json:"has_children,omitempty"`
	Paragraph   *Paragraph  `json:"paragraph,omitempty"`
	Divider     *Empty      `json:"divider,omitempty"`
	ColumnList  *Container  `json:"column_list,omitempty"`
	Column      *Container  `json:"column,omitempty"`
	Image       *FileObject `json:"image,omitempty"`
	Video       *FileObject `json:"video,omitempty"`
}

// BlockList is one page of block children.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// SelectOption is a status or select value.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a date property value.
type DateValue struct {
	Start string `json:"start"`
}

// PropertyValue is one page property. Only the field matching the property's
// type is set.
type PropertyValue struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Status      *SelectOption  `json:"status,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Files       []FileObject   `json:"files,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
}

// Properties maps property names to values.
type Properties map[string]PropertyValue

// Parent identifies where a page is created.
type Parent struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// Page is a database row.
type Page struct {
	Object      string     `json:"object,omitempty"`
	ID          string     `json:"id"`
	CreatedTime time.Time  `json:"created_time"`
	Parent      Parent     `json:"parent"`
	Properties  Properties `json:"properties"`
}

// CreatePageRequest is the body of a page creation.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
	Children   []Block    `json:"children,omitempty"`
}

// StatusFilter matches a status property.
type StatusFilter struct {
	Equals string `json:"equals"`
}

// Filter is a single-property database filter.
type Filter struct {
	Property string        `json:"property"`
	Status   *StatusFilter `json:"status,omitempty"`
}

// Sort orders database query results.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// DatabaseQuery is the body of a database query.
type DatabaseQuery struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// QueryResult is one page of database query results.
type QueryResult struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// CreateFileUploadRequest starts a file upload.
type CreateFileUploadRequest struct {
	Mode          string `json:"mode"`
	Filename      string `json:"filename,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	NumberOfParts int    `json:"number_of_parts,omitempty"`
}

// FileUpload describes an upload object.
type FileUpload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// FilePart is one chunk sent to an upload. PartNumber is 1-based and zero
// for single-part uploads.
type FilePart struct {
	Filename    string
	ContentType string
	PartNumber  int
	Path        string
}
