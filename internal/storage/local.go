// Package storage writes uploaded post images to the media directory.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path"
	"path/filepath"
	"strings"

	"yatube/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register decoder
)

// PostsDir is the subdirectory of the media root that holds post images.
const PostsDir = "posts"

const DefaultMaxUploadSizeMB = 5

var extensions = map[string]string{
	"gif":  ".gif",
	"jpeg": ".jpg",
	"png":  ".png",
	"webp": ".webp",
}

// LocalStorage stores files on the local filesystem below root.
type LocalStorage struct {
	root     string
	maxBytes int64
}

func NewLocalStorage(root string, maxUploadSizeMB int) *LocalStorage {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &LocalStorage{root: root, maxBytes: int64(maxUploadSizeMB) * 1024 * 1024}
}

// Root returns the media directory served under /media.
func (s *LocalStorage) Root() string {
	return s.root
}

// SaveImage checks that content decodes as a supported image and writes it
// under posts/ with a random name. It returns the path relative to the root.
func (s *LocalStorage) SaveImage(_ context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	ext, ok := extensions[format]
	if !ok {
		return "", models.NewValidationError("Unsupported image format")
	}

	rel := path.Join(PostsDir, uuid.NewString()+ext)
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

// Delete removes a previously saved file. Missing files are ignored.
func (s *LocalStorage) Delete(_ context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	clean := path.Clean("/" + rel)
	if !strings.HasPrefix(clean, "/"+PostsDir+"/") {
		return models.NewValidationError("Invalid media path")
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.NewInternalError(err)
	}
	return nil
}
