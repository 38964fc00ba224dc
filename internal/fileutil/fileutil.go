package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// PartCount returns how many chunks of partSize cover size bytes.
func PartCount(size, partSize int64) int {
	if size <= 0 || partSize <= 0 {
		return 0
	}
	return int((size + partSize - 1) / partSize)
}

// SplitFile writes src into consecutive part files of at most partSize bytes
// inside dir, named <base>.part-<n>. On error every part already written is
// removed.
func SplitFile(src, dir string, partSize int64) ([]string, error) {
	if partSize <= 0 {
		return nil, fmt.Errorf("split %s: part size must be positive", src)
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return nil, err
	}

	count := PartCount(info.Size(), partSize)
	parts := make([]string, 0, count)
	base := filepath.Base(src)
	for i := range count {
		path := filepath.Join(dir, fmt.Sprintf("%s.part-%03d", base, i+1))
		section := io.NewSectionReader(in, int64(i)*partSize, partSize)
		if err := writeSection(path, section); err != nil {
			_ = RemoveFiles(append(parts, path))
			return nil, fmt.Errorf("split %s part %d: %w", base, i+1, err)
		}
		parts = append(parts, path)
	}
	return parts, nil
}

func writeSection(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RemoveFiles deletes every path, ignoring ones that no longer exist, and
// joins the remaining errors.
func RemoveFiles(paths []string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
