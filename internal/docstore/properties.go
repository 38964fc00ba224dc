package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shortsmith/internal/lifecycle"
	"shortsmith/internal/notion"
	"shortsmith/internal/script"
)

// Property names of the script database.
const (
	PropName        = "Name"
	PropStatus      = "Status"
	PropComposition = "Composition"
	PropAudio       = "Audio files"
	PropSEO         = "Title"
	PropOutput      = "Output files"
	PropDate        = "Date"
	PropSettings    = "Settings"
	PropChannel     = "Channel"
)

// thumbnailMarker identifies thumbnails among a record's output files.
const thumbnailMarker = "Thumbnail"

func titleProperty(title string) notion.PropertyValue {
	return notion.PropertyValue{Title: notion.Text(title)}
}

func statusProperty(status lifecycle.Status) notion.PropertyValue {
	return notion.PropertyValue{Status: &notion.SelectOption{Name: string(status)}}
}

func richTextProperty(text string) notion.PropertyValue {
	return notion.PropertyValue{RichText: notion.Text(text)}
}

func filesProperty(files []notion.FileObject) notion.PropertyValue {
	if files == nil {
		files = []notion.FileObject{}
	}
	return notion.PropertyValue{Files: files}
}

func multiSelect[T ~string](values []T) notion.PropertyValue {
	options := make([]notion.SelectOption, 0, len(values))
	for _, v := range values {
		if name := strings.TrimSpace(string(v)); name != "" {
			options = append(options, notion.SelectOption{Name: name})
		}
	}
	return notion.PropertyValue{MultiSelect: options}
}

// newRecordProperties builds the properties of a freshly created record.
func newRecordProperties(rec script.Record, status lifecycle.Status, audio, outputs []notion.FileObject, now time.Time) notion.Properties {
	props := notion.Properties{
		PropName:   titleProperty(rec.Title),
		PropStatus: statusProperty(status),
		PropDate:   {Date: &notion.DateValue{Start: now.UTC().Format(time.RFC3339)}},
	}
	if len(rec.Compositions) > 0 {
		props[PropComposition] = multiSelect(rec.Compositions)
	}
	if len(rec.Channels) > 0 {
		props[PropChannel] = multiSelect(rec.Channels)
	}
	if len(audio) > 0 {
		props[PropAudio] = filesProperty(audio)
	}
	if len(outputs) > 0 {
		props[PropOutput] = filesProperty(outputs)
	}
	if rec.SEO != "" {
		props[PropSEO] = richTextProperty(rec.SEO)
	}
	if len(rec.Settings) > 0 {
		props[PropSettings] = richTextProperty(string(rec.Settings))
	}
	return props
}

// decodeProperties maps page properties onto a record without its content.
func decodeProperties(page notion.Page) (script.Record, error) {
	rec := script.Record{ID: page.ID, CreatedAt: page.CreatedTime}
	props := page.Properties

	rec.Title = strings.TrimSpace(notion.PlainText(props[PropName].Title))
	if rec.Title == "" {
		return rec, fmt.Errorf("property %q is empty", PropName)
	}

	if status := props[PropStatus].Status; status != nil {
		parsed, ok := lifecycle.Parse(status.Name)
		if !ok {
			return rec, fmt.Errorf("unknown status %q", status.Name)
		}
		rec.Status = parsed
	}

	for _, opt := range props[PropComposition].MultiSelect {
		if c, ok := script.ParseComposition(opt.Name); ok {
			rec.Compositions = append(rec.Compositions, c)
		} else {
			rec.Compositions = append(rec.Compositions, script.Composition(opt.Name))
		}
	}
	for _, opt := range props[PropChannel].MultiSelect {
		rec.Channels = append(rec.Channels, script.Channel(opt.Name))
	}

	rec.SEO = notion.PlainText(props[PropSEO].RichText)

	if raw := strings.TrimSpace(notion.PlainText(props[PropSettings].RichText)); raw != "" {
		if !json.Valid([]byte(raw)) {
			return rec, fmt.Errorf("property %q is not valid JSON", PropSettings)
		}
		rec.Settings = json.RawMessage(raw)
	}

	for _, f := range props[PropAudio].Files {
		rec.Audio = append(rec.Audio, script.AudioTrack{Src: f.URL(), Name: f.Name})
	}
	for _, f := range props[PropOutput].Files {
		if strings.Contains(f.Name, thumbnailMarker) {
			rec.Thumbnails = append(rec.Thumbnails, script.Thumbnail{Name: f.Name, Src: f.URL()})
		}
	}

	if date := props[PropDate].Date; date != nil && date.Start != "" {
		if ts, err := parseDate(date.Start); err == nil {
			rec.CreatedAt = ts
		}
	}
	return rec, nil
}

func outputFiles(page notion.Page) []script.OutputFile {
	files := page.Properties[PropOutput].Files
	out := make([]script.OutputFile, 0, len(files))
	for _, f := range files {
		out = append(out, script.OutputFile{Name: f.Name, URL: f.URL()})
	}
	return out
}

// resendable strips server-populated fields so existing files can be
// written back alongside new uploads.
func resendable(files []notion.FileObject) []notion.FileObject {
	out := make([]notion.FileObject, 0, len(files))
	for _, f := range files {
		switch {
		case f.File != nil:
			out = append(out, notion.FileObject{Name: f.Name, Type: "file", File: &notion.HostedFile{URL: f.File.URL}})
		case f.External != nil:
			out = append(out, notion.FileObject{Name: f.Name, Type: "external", External: &notion.ExternalFile{URL: f.External.URL}})
		case f.FileUpload != nil:
			out = append(out, notion.UploadedFile(f.Name, f.FileUpload.ID))
		}
	}
	return out
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
