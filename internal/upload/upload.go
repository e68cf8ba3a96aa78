package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const MaxFileSize = 5 << 20 // 5 MB

var (
	ErrFileTooLarge    = errors.New("file exceeds 5MB limit")
	ErrUnsupportedType = errors.New("only jpeg and png images are accepted")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Store writes uploaded images to local disk and hands back the public
// path they are served from.
type Store struct {
	dir       string
	publicURL string
}

func NewStore(dir, publicURL string) *Store {
	return &Store{dir: dir, publicURL: publicURL}
}

// Dir is the directory served as static uploads.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and persists one uploaded image, returning its URL.
// The content type is sniffed from the file header, not trusted from
// the request.
func (s *Store) Save(file *multipart.FileHeader) (string, error) {
	if file.Size > MaxFileSize {
		return "", ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	ext, ok := extensions[sniffImageType(head[:n])]
	if !ok {
		return "", ErrUnsupportedType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/uploads/%s", s.publicURL, name), nil
}

func sniffImageType(head []byte) string {
	switch {
	case len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF:
		return "image/jpeg"
	case len(head) >= 8 && string(head[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	default:
		return ""
	}
}
