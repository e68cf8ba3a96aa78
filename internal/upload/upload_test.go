package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFile(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["image"][0]
}

func TestStore_Save(t *testing.T) {
	store := NewStore(t.TempDir(), "http://localhost:8080")

	t.Run("png accepted", func(t *testing.T) {
		content := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
		url, err := store.Save(multipartFile(t, content))
		require.NoError(t, err)
		assert.Contains(t, url, "http://localhost:8080/uploads/")
		assert.Contains(t, url, ".png")
	})

	t.Run("jpeg accepted", func(t *testing.T) {
		content := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 64)...)
		url, err := store.Save(multipartFile(t, content))
		require.NoError(t, err)
		assert.Contains(t, url, ".jpg")
	})

	t.Run("other content rejected", func(t *testing.T) {
		_, err := store.Save(multipartFile(t, []byte("GIF89a not an accepted image")))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("oversized rejected", func(t *testing.T) {
		header := multipartFile(t, []byte("\x89PNG\r\n\x1a\n"))
		header.Size = MaxFileSize + 1
		_, err := store.Save(header)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}
