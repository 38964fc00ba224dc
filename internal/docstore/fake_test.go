package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"shortsmith/internal/notion"
)

// fakeAPI is an in-memory document store. Appended column lists are stored
// without inline children so decoding goes through ListAllBlockChildren.
type fakeAPI struct {
	mu sync.Mutex

	nextID       int
	uploads      []notion.CreateFileUploadRequest
	sent         []notion.FilePart
	sentSizes    []int64
	partFailures map[int]int
	completed    []string
	uploadNames  map[string]string

	pages     map[string]*notion.Page
	databases map[string][]string
	children  map[string][]notion.Block
	appends   int
	failAfter int

	listFailures map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		partFailures: map[int]int{},
		uploadNames:  map[string]string{},
		pages:        map[string]*notion.Page{},
		databases:    map[string][]string{},
		children:     map[string][]notion.Block{},
		failAfter:    -1,
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) CreateFileUpload(_ context.Context, req notion.CreateFileUploadRequest) (notion.FileUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, req)
	id := f.id("upload")
	f.uploadNames[id] = req.Filename
	return notion.FileUpload{ID: id, Status: "pending", Filename: req.Filename, ContentType: req.ContentType}, nil
}

func (f *fakeAPI) SendFileUpload(_ context.Context, uploadID string, part notion.FilePart) (notion.FileUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, err := os.Stat(part.Path)
	if err != nil {
		return notion.FileUpload{}, err
	}
	if remaining := f.partFailures[part.PartNumber]; remaining > 0 {
		f.partFailures[part.PartNumber] = remaining - 1
		return notion.FileUpload{}, &notion.APIError{StatusCode: http.StatusInternalServerError, Message: "part rejected"}
	}
	f.sent = append(f.sent, part)
	f.sentSizes = append(f.sentSizes, info.Size())
	return notion.FileUpload{ID: uploadID, Status: "uploaded"}, nil
}

func (f *fakeAPI) CompleteFileUpload(_ context.Context, uploadID string) (notion.FileUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, uploadID)
	return notion.FileUpload{ID: uploadID, Status: "uploaded"}, nil
}

func (f *fakeAPI) CreatePage(_ context.Context, req notion.CreatePageRequest) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &notion.Page{
		ID:          f.id("page"),
		CreatedTime: time.Date(2026, 1, 1, 0, 0, f.nextID, 0, time.UTC),
		Parent:      req.Parent,
		Properties:  f.hostFiles(req.Properties),
	}
	f.pages[page.ID] = page
	f.databases[req.Parent.DatabaseID] = append(f.databases[req.Parent.DatabaseID], page.ID)
	return *page, nil
}

func (f *fakeAPI) RetrievePage(_ context.Context, id string) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[id]
	if !ok {
		return notion.Page{}, &notion.APIError{StatusCode: http.StatusNotFound, Code: "object_not_found"}
	}
	return *page, nil
}

func (f *fakeAPI) UpdatePage(_ context.Context, id string, props notion.Properties) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[id]
	if !ok {
		return notion.Page{}, &notion.APIError{StatusCode: http.StatusNotFound, Code: "object_not_found"}
	}
	merged := notion.Properties{}
	for k, v := range page.Properties {
		merged[k] = v
	}
	for k, v := range f.hostFiles(props) {
		merged[k] = v
	}
	page.Properties = merged
	return *page, nil
}

func (f *fakeAPI) QueryDatabase(_ context.Context, databaseID string, q notion.DatabaseQuery) (notion.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []notion.Page
	for _, id := range f.databases[databaseID] {
		page := f.pages[id]
		if q.Filter != nil && q.Filter.Status != nil {
			status := page.Properties[PropStatus].Status
			if status == nil || status.Name != q.Filter.Status.Equals {
				continue
			}
		}
		matched = append(matched, *page)
	}
	if len(q.Sorts) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Properties[PropDate].Date.Start > matched[j].Properties[PropDate].Date.Start
		})
	}
	start := 0
	if q.StartCursor != "" {
		start, _ = strconv.Atoi(q.StartCursor)
	}
	size := q.PageSize
	if size <= 0 || size > notion.MaxPageSize {
		return notion.QueryResult{}, errors.New("page size out of range")
	}
	end := min(start+size, len(matched))
	result := notion.QueryResult{Results: matched[start:end]}
	if end < len(matched) {
		next := strconv.Itoa(end)
		result.HasMore = true
		result.NextCursor = &next
	}
	return result, nil
}

func (f *fakeAPI) AppendBlockChildren(_ context.Context, blockID string, children []notion.Block) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(children) > notion.MaxAppendChildren {
		return nil, errors.New("too many children")
	}
	if f.failAfter >= 0 && f.appends >= f.failAfter {
		return nil, &notion.APIError{StatusCode: http.StatusBadRequest, Message: "append rejected"}
	}
	f.appends++
	for _, child := range children {
		f.children[blockID] = append(f.children[blockID], f.store(child))
	}
	return children, nil
}

// store assigns ids, hosts uploaded files, and moves nested children out of
// line the way the real API returns them.
func (f *fakeAPI) store(b notion.Block) notion.Block {
	b.ID = f.id("block")
	b.Image = f.hostFile(b.Image)
	b.Video = f.hostFile(b.Video)
	var nested *notion.Container
	switch {
	case b.ColumnList != nil:
		nested = b.ColumnList
		b.ColumnList = &notion.Container{}
	case b.Column != nil:
		nested = b.Column
		b.Column = &notion.Container{}
	}
	if nested != nil {
		b.HasChildren = len(nested.Children) > 0
		for _, child := range nested.Children {
			f.children[b.ID] = append(f.children[b.ID], f.store(child))
		}
	}
	return b
}

func (f *fakeAPI) ListAllBlockChildren(_ context.Context, blockID string) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listFailures[blockID]; err != nil {
		return nil, err
	}
	return append([]notion.Block(nil), f.children[blockID]...), nil
}

func (f *fakeAPI) hostFiles(props notion.Properties) notion.Properties {
	out := notion.Properties{}
	for k, v := range props {
		if v.Files != nil {
			files := make([]notion.FileObject, 0, len(v.Files))
			for _, file := range v.Files {
				files = append(files, *f.hostFile(&file))
			}
			v.Files = files
		}
		out[k] = v
	}
	return out
}

func (f *fakeAPI) hostFile(file *notion.FileObject) *notion.FileObject {
	if file == nil || file.FileUpload == nil {
		return file
	}
	hosted := *file
	hosted.Type = "file"
	hosted.File = &notion.HostedFile{URL: "https://files.test/" + file.FileUpload.ID + "/" + f.uploadNames[file.FileUpload.ID] + "?sig=abc"}
	hosted.FileUpload = nil
	return &hosted
}

type fakeDownloader struct {
	mu   sync.Mutex
	urls []string
	fail string
}

func (d *fakeDownloader) Download(_ context.Context, url, dst string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if url == d.fail {
		return errors.New("download refused")
	}
	d.urls = append(d.urls, url)
	return os.WriteFile(dst, []byte(url), 0o644)
}

func noSleep(context.Context, time.Duration) error { return nil }
