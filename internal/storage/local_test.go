package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent gif.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x21, 0xf9, 0x04,
	0x01, 0x0a, 0x00, 0x01, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x4c, 0x01, 0x00, 0x3b,
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveImage(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, 1)

	for name, tc := range map[string]struct {
		content []byte
		ext     string
	}{
		"gif": {content: smallGIF, ext: ".gif"},
		"png": {content: tinyPNG(t), ext: ".png"},
	} {
		t.Run(name, func(t *testing.T) {
			rel, err := s.SaveImage(context.Background(), tc.content)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(rel, "posts/"))
			assert.Equal(t, tc.ext, filepath.Ext(rel))

			written, err := os.ReadFile(filepath.Join(root, rel))
			require.NoError(t, err)
			assert.Equal(t, tc.content, written)
		})
	}
}

func TestSaveImage_UniqueNames(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), 1)
	a, err := s.SaveImage(context.Background(), smallGIF)
	require.NoError(t, err)
	b, err := s.SaveImage(context.Background(), smallGIF)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSaveImage_Rejects(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), 1)

	_, err := s.SaveImage(context.Background(), nil)
	assert.True(t, models.IsValidation(err))

	_, err = s.SaveImage(context.Background(), []byte("definitely not an image"))
	assert.True(t, models.IsValidation(err))

	big := make([]byte, 2*1024*1024)
	copy(big, smallGIF)
	_, err = s.SaveImage(context.Background(), big)
	assert.True(t, models.IsValidation(err))
}

func TestDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, 1)

	rel, err := s.SaveImage(context.Background(), smallGIF)
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), rel))
	_, statErr := os.Stat(filepath.Join(root, rel))
	assert.True(t, os.IsNotExist(statErr))

	// second delete is a no-op
	require.NoError(t, s.Delete(context.Background(), rel))
	require.NoError(t, s.Delete(context.Background(), ""))

	err = s.Delete(context.Background(), "../config.yml")
	assert.True(t, models.IsValidation(err))
}
