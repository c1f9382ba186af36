package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxPhotoSize is the upload size limit for client photos.
const MaxPhotoSize = 5 << 20 // 5MB

// allowedMIMETypes maps accepted image types to the stored file extension.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	// ErrPhotoTooLarge is returned when the upload exceeds MaxPhotoSize.
	ErrPhotoTooLarge = errors.New("file too large")
	// ErrPhotoType is returned when the upload is not an accepted image type.
	ErrPhotoType = errors.New("file type not allowed")
)

// StoredFile is the result of a completed upload: a path relative to the
// process working directory, recorded verbatim on the client row.
type StoredFile struct {
	Path string
}

// PhotoStore persists bounded image uploads before business logic runs.
type PhotoStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (*StoredFile, error)
	Remove(ctx context.Context, path string) error
}

// DiskPhotoStore stores photos under a single directory with generated,
// collision-resistant filenames.
type DiskPhotoStore struct {
	dir string
}

var _ PhotoStore = (*DiskPhotoStore)(nil)

// NewDiskPhotoStore creates the upload directory if needed.
func NewDiskPhotoStore(dir string) (*DiskPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskPhotoStore{dir: dir}, nil
}

// Save validates size and MIME type, then writes the upload to disk under a
// uuid-based filename. Nothing is left behind on failure.
func (s *DiskPhotoStore) Save(ctx context.Context, file *multipart.FileHeader) (*StoredFile, error) {
	if file.Size > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}

	ext, ok := allowedMIMETypes[file.Header.Get("Content-Type")]
	if !ok {
		return nil, ErrPhotoType
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + ext
	dstPath := filepath.Join(s.dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("create photo file: %w", err)
	}

	// LimitReader guards against a FileHeader.Size that lied about the body.
	if _, err := io.Copy(dst, io.LimitReader(src, MaxPhotoSize+1)); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, fmt.Errorf("write photo file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("close photo file: %w", err)
	}

	return &StoredFile{Path: filepath.ToSlash(dstPath)}, nil
}

// Remove deletes a stored photo. A missing file is not an error so repeated
// cleanup attempts stay idempotent.
func (s *DiskPhotoStore) Remove(ctx context.Context, path string) error {
	if err := os.Remove(filepath.FromSlash(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
