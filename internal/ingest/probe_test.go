package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

func TestProbeDimensionsReadsImageSize(t *testing.T) {
	data := testPNG(t, 8, 5)
	f := models.IncomingFile{Name: "tiny.png", MIMEType: "image/png", Size: int64(len(data)), Data: data}

	dims := ProbeDimensions(f)
	require.NotNil(t, dims)
	assert.Equal(t, 8, dims.Width)
	assert.Equal(t, 5, dims.Height)
}

func TestProbeDimensionsJPEG(t *testing.T) {
	data := testJPEG(t, 320, 200)
	f := models.IncomingFile{Name: "shot.jpg", MIMEType: "image/jpeg", Size: int64(len(data)), Data: data}

	dims := ProbeDimensions(f)
	require.NotNil(t, dims)
	assert.Equal(t, 320, dims.Width)
	assert.Equal(t, 200, dims.Height)
}

func TestProbeDimensionsSkipsNonImages(t *testing.T) {
	f := models.IncomingFile{Name: "clip.mp4", MIMEType: "video/mp4", Size: 4, Data: []byte("mp4!")}
	assert.Nil(t, ProbeDimensions(f))
}

func TestProbeDimensionsNilOnDecodeFailure(t *testing.T) {
	f := models.IncomingFile{Name: "broken.png", MIMEType: "image/png", Size: 9, Data: []byte("not a png")}
	assert.Nil(t, ProbeDimensions(f))
}
