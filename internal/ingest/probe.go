package ingest

import (
	"bytes"
	"image"

	// register decoders for the formats the admin console uploads
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

// Dimensions holds intrinsic pixel width and height of an image
type Dimensions struct {
	Width  int
	Height int
}

// ProbeDimensions reads the intrinsic pixel size of an image payload.
// Non-image MIME types return nil without touching the bytes; payloads
// that fail to decode also return nil. Only the image header is read,
// never a full bitmap.
func ProbeDimensions(f models.IncomingFile) *Dimensions {
	if !isImage(f.MIMEType) {
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return nil
	}

	return &Dimensions{Width: cfg.Width, Height: cfg.Height}
}
