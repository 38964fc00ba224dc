package notion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Upload modes.
const (
	ModeSinglePart = "single_part"
	ModeMultiPart  = "multi_part"
)

// CreateFileUpload starts an upload.
func (c *Client) CreateFileUpload(ctx context.Context, req CreateFileUploadRequest) (FileUpload, error) {
	var upload FileUpload
	err := c.do(ctx, http.MethodPost, "/file_uploads", nil, jsonBody(req), &upload)
	return upload, err
}

// SendFileUpload sends one part (or the whole file in single-part mode).
func (c *Client) SendFileUpload(ctx context.Context, uploadID string, part FilePart) (FileUpload, error) {
	var upload FileUpload
	err := c.do(ctx, http.MethodPost, "/file_uploads/"+url.PathEscape(uploadID)+"/send", nil, multipartBody(part), &upload)
	return upload, err
}

// CompleteFileUpload finalizes a multi-part upload.
func (c *Client) CompleteFileUpload(ctx context.Context, uploadID string) (FileUpload, error) {
	var upload FileUpload
	err := c.do(ctx, http.MethodPost, "/file_uploads/"+url.PathEscape(uploadID)+"/complete", nil, nil, &upload)
	return upload, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(part FilePart) body {
	return func() (io.Reader, string, error) {
		file, err := os.Open(part.Path)
		if err != nil {
			return nil, "", fmt.Errorf("open part: %w", err)
		}
		defer file.Close()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		filename := part.Filename
		if filename == "" {
			filename = filepath.Base(part.Path)
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
		contentType := part.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		fw, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create form part: %w", err)
		}
		if _, err := io.Copy(fw, file); err != nil {
			return nil, "", fmt.Errorf("copy part: %w", err)
		}
		if part.PartNumber > 0 {
			if err := writer.WriteField("part_number", strconv.Itoa(part.PartNumber)); err != nil {
				return nil, "", fmt.Errorf("write part number: %w", err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("close form: %w", err)
		}
		return &buf, writer.FormDataContentType(), nil
	}
}

// Download fetches a hosted file to dst. Hosted URLs are pre-signed, so no
// credentials are sent. The file is written to a sibling temp file and
// renamed once complete.
func (c *Client) Download(ctx context.Context, rawURL, dst string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.New("download: empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("download: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Message: "download " + filepath.Base(dst)}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("download: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("download: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("download: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("download: close: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("download: rename: %w", err)
	}
	return nil
}
