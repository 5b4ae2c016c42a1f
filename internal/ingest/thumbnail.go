package ingest

import (
	"bytes"
	"context"
	"math"
	"path"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

const (
	// ThumbnailMaxEdge bounds the longer edge of a generated thumbnail
	ThumbnailMaxEdge = 300
	// ThumbnailJPEGQuality is the JPEG quality thumbnails are encoded at
	ThumbnailJPEGQuality = 75
	// ThumbnailSubfolder is the sub-path under the upload folder where
	// thumbnails are stored
	ThumbnailSubfolder = "thumbnails"
)

// Thumbnailer derives a bounded-size JPEG from an image payload and
// stores it next to the original. Every failure mode degrades to "no
// thumbnail": a failed thumbnail never fails the parent upload.
type Thumbnailer struct {
	store ObjectStore
}

// NewThumbnailer creates a thumbnailer writing through the given store
func NewThumbnailer(store ObjectStore) *Thumbnailer {
	return &Thumbnailer{store: store}
}

// Generate decodes f, scales it so its longer edge is at most
// ThumbnailMaxEdge (never upscaling), re-encodes it as JPEG and stores it
// under "<folder>/thumbnails/". It returns the stored thumbnail's public
// URL, or "" if any step failed.
func (t *Thumbnailer) Generate(ctx context.Context, f models.IncomingFile, bucket, folder string) string {
	ctx, span := tracer.Start(ctx, "ingest.generate_thumbnail")
	defer span.End()

	src, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("thumbnail skipped: decode failed")
		return ""
	}

	bounds := src.Bounds()
	width, height := ThumbnailSize(bounds.Dx(), bounds.Dy())
	span.SetAttributes(
		attribute.Int("source_width", bounds.Dx()),
		attribute.Int("source_height", bounds.Dy()),
		attribute.Int("thumb_width", width),
		attribute.Int("thumb_height", height),
	)

	// single resample pass, no progressive resizing
	thumb := imaging.Resize(src, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJPEGQuality)); err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("thumbnail skipped: encode failed")
		return ""
	}

	key := GenerateKey(f.Name)
	objectPath := path.Join(folder, ThumbnailSubfolder, key)

	url, err := t.store.Put(ctx, bucket, objectPath, buf.Bytes(), "image/jpeg", false)
	if err != nil {
		log.Warn().Err(err).Str("file", f.Name).Str("path", objectPath).Msg("thumbnail skipped: store failed")
		return ""
	}

	return url
}

// ThumbnailSize computes the target dimensions for a source of w x h:
// the longer edge becomes ThumbnailMaxEdge with aspect ratio preserved,
// except that sources already within the bound pass through unchanged.
func ThumbnailSize(w, h int) (int, int) {
	if w <= ThumbnailMaxEdge && h <= ThumbnailMaxEdge {
		return w, h
	}
	if w >= h {
		return ThumbnailMaxEdge, int(math.Round(float64(h) * ThumbnailMaxEdge / float64(w)))
	}
	return int(math.Round(float64(w) * ThumbnailMaxEdge / float64(h))), ThumbnailMaxEdge
}
