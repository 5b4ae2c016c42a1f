package ingest

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

func TestThumbnailSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"wide landscape", 600, 300, 300, 150},
		{"tall portrait", 300, 600, 150, 300},
		{"already small passes through", 200, 100, 200, 100},
		{"square at the bound passes through", 300, 300, 300, 300},
		{"square above the bound", 900, 900, 300, 300},
		{"rounding", 1000, 333, 300, 100},
		{"classic 4:3", 640, 480, 300, 225},
		{"one edge under the bound", 1200, 200, 300, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ThumbnailSize(tt.w, tt.h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestGenerateStoresScaledJPEG(t *testing.T) {
	store := &fakeStore{}
	thumbs := NewThumbnailer(store)

	data := testPNG(t, 600, 300)
	f := models.IncomingFile{Name: "panorama.png", MIMEType: "image/png", Size: int64(len(data)), Data: data}

	url := thumbs.Generate(context.Background(), f, "media", "uploads")
	require.NotEmpty(t, url)

	puts := store.calls()
	require.Len(t, puts, 1)
	put := puts[0]
	assert.Equal(t, "media", put.bucket)
	assert.Regexp(t, `^uploads/thumbnails/\d+_\d{1,3}\.png$`, put.path)
	assert.Equal(t, "image/jpeg", put.contentType)
	assert.False(t, put.overwrite)
	assert.Equal(t, store.PublicURL("media", put.path), url)

	thumb, err := jpeg.Decode(bytes.NewReader(put.data))
	require.NoError(t, err)
	assert.Equal(t, 300, thumb.Bounds().Dx())
	assert.Equal(t, 150, thumb.Bounds().Dy())
}

func TestGenerateKeepsSmallImageDimensions(t *testing.T) {
	store := &fakeStore{}
	thumbs := NewThumbnailer(store)

	data := testJPEG(t, 120, 80)
	f := models.IncomingFile{Name: "small.jpg", MIMEType: "image/jpeg", Size: int64(len(data)), Data: data}

	url := thumbs.Generate(context.Background(), f, "media", "uploads")
	require.NotEmpty(t, url)

	puts := store.calls()
	require.Len(t, puts, 1)

	thumb, err := jpeg.Decode(bytes.NewReader(puts[0].data))
	require.NoError(t, err)
	assert.Equal(t, 120, thumb.Bounds().Dx(), "no upscaling")
	assert.Equal(t, 80, thumb.Bounds().Dy())
}

func TestGenerateReturnsEmptyOnDecodeFailure(t *testing.T) {
	store := &fakeStore{}
	thumbs := NewThumbnailer(store)

	f := models.IncomingFile{Name: "corrupt.png", MIMEType: "image/png", Size: 7, Data: []byte("garbage")}
	assert.Empty(t, thumbs.Generate(context.Background(), f, "media", "uploads"))
	assert.Empty(t, store.calls())
}

func TestGenerateReturnsEmptyOnStoreFailure(t *testing.T) {
	store := &fakeStore{failErr: errors.New("network down")}
	thumbs := NewThumbnailer(store)

	data := testPNG(t, 600, 300)
	f := models.IncomingFile{Name: "panorama.png", MIMEType: "image/png", Size: int64(len(data)), Data: data}

	assert.Empty(t, thumbs.Generate(context.Background(), f, "media", "uploads"))
}
