package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

type UploadResult struct {
	Key      string
	Location string
}

type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Open(ctx context.Context, key string) (*Object, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// NewKey names an upload after the time it arrived, keeping the original extension.
func NewKey(originalName string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(originalName)))
}

// ValidKey rejects anything that could escape the upload namespace.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
