package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadURLPrefix is the public path under which uploaded images are served.
const UploadURLPrefix = "/uploads/"

// ErrFileTooLarge is returned by Save when the upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// FileStorage stores post images.
type FileStorage interface {
	// Save writes the upload and returns its public URL.
	Save(fh *multipart.FileHeader) (string, error)
	// Delete removes the file behind a public URL.
	Delete(url string) error
}

// LocalStorage keeps uploads in a directory on local disk.
type LocalStorage struct {
	root    string
	maxSize int64
}

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(root string, maxSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{root: root, maxSize: maxSize}, nil
}

// Root returns the directory served under UploadURLPrefix.
func (s *LocalStorage) Root() string { return s.root }

// Save copies the upload into root as "<unixnano>-<basename>".
func (s *LocalStorage) Save(fh *multipart.FileHeader) (string, error) {
	if s.maxSize > 0 && fh.Size > s.maxSize {
		return "", ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "file"
	}
	name = fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)
	dst := filepath.Join(s.root, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	var r io.Reader = src
	if s.maxSize > 0 {
		r = &io.LimitedReader{R: src, N: s.maxSize + 1}
	}
	written, err := io.Copy(out, r)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return UploadURLPrefix + name, nil
}

// Delete removes the file named by url. Only files directly inside root can be addressed.
func (s *LocalStorage) Delete(url string) error {
	if !strings.HasPrefix(url, UploadURLPrefix) {
		return fmt.Errorf("not an upload url: %q", url)
	}
	name := filepath.Base(strings.TrimPrefix(url, UploadURLPrefix))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid upload url: %q", url)
	}
	return os.Remove(filepath.Join(s.root, name))
}
