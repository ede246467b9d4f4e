// Package storage keeps uploaded media outside the database. Rows only hold
// the reference string returned by a Store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"quizzarium-backend/internal/apperrors"
)

type Store interface {
	// Save writes the content under a generated name derived from filename
	// and returns the reference to persist.
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	// Delete removes the file behind ref. Unknown refs are not an error.
	Delete(ctx context.Context, ref string) error
}

// File is an upload that has not been stored yet.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

func FromHeader(fh *multipart.FileHeader) *File {
	return &File{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func FromBytes(name string, data []byte) *File {
	return &File{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

var (
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	audioExts = map[string]bool{".mp3": true, ".ogg": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true}
	videoExts = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".avi": true, ".mkv": true}
)

// Kind reports whether filename is an image, audio or video file.
func Kind(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExts[ext]:
		return "image", nil
	case audioExts[ext]:
		return "audio", nil
	case videoExts[ext]:
		return "video", nil
	}
	return "", fmt.Errorf("%w: unsupported file format %q", apperrors.ErrValidation, ext)
}

// Validate checks the extension and, when maxBytes > 0, the size.
func Validate(f *File, maxBytes int64) error {
	if _, err := Kind(f.Name); err != nil {
		return err
	}
	if maxBytes > 0 && f.Size > maxBytes {
		return fmt.Errorf("%w: file %s too large (max %dMB)", apperrors.ErrValidation, f.Name, maxBytes>>20)
	}
	return nil
}
