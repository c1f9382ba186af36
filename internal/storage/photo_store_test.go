package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFileHeader builds a real multipart.FileHeader the way echo hands it to
// the handler.
func makeFileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="foto"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	files := req.MultipartForm.File["foto"]
	require.Len(t, files, 1)
	return files[0]
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDiskPhotoStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskPhotoStore(dir)
	require.NoError(t, err)

	file := makeFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpeg-bytes"))
	stored, err := store.Save(context.Background(), file)

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stored.Path, ".jpg"))
	assert.NotContains(t, stored.Path, "photo", "stored name must be generated, not the client's")

	data, err := os.ReadFile(filepath.FromSlash(stored.Path))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Len(t, listDir(t, dir), 1)
}

func TestDiskPhotoStore_Save_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
		expected    error
	}{
		{name: "pdf rejected", contentType: "application/pdf", data: []byte("%PDF"), expected: ErrPhotoType},
		{name: "plain text rejected", contentType: "text/plain", data: []byte("hello"), expected: ErrPhotoType},
		{name: "oversized rejected", contentType: "image/png", data: bytes.Repeat([]byte("a"), MaxPhotoSize+1), expected: ErrPhotoTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store, err := NewDiskPhotoStore(dir)
			require.NoError(t, err)

			file := makeFileHeader(t, "upload.bin", tt.contentType, tt.data)
			stored, err := store.Save(context.Background(), file)

			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, stored)
			assert.Empty(t, listDir(t, dir), "nothing may be left on disk after a rejected upload")
		})
	}
}

func TestDiskPhotoStore_Remove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskPhotoStore(dir)
	require.NoError(t, err)

	file := makeFileHeader(t, "photo.png", "image/png", []byte("png-bytes"))
	stored, err := store.Save(context.Background(), file)
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), stored.Path))
	assert.Empty(t, listDir(t, dir))

	// removing an already removed file stays silent
	assert.NoError(t, store.Remove(context.Background(), stored.Path))
}
