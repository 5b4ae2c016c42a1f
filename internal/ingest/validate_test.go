package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

func TestValidateSizeLimit(t *testing.T) {
	accepted := []string{"image/*"}

	t.Run("over the limit", func(t *testing.T) {
		f := models.IncomingFile{Name: "big.jpg", MIMEType: "image/jpeg", Size: 51 * 1024 * 1024}
		err := Validate(f, accepted, 50)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "limit")
		assert.Contains(t, vErr.Reason, "50 MiB")
	})

	t.Run("exactly at the limit", func(t *testing.T) {
		f := models.IncomingFile{Name: "edge.jpg", MIMEType: "image/jpeg", Size: 50 * 1024 * 1024}
		assert.NoError(t, Validate(f, accepted, 50))
	})
}

func TestValidateTypePatterns(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		accepted []string
		valid    bool
	}{
		{"exact match", "image/png", []string{"image/png"}, true},
		{"exact mismatch", "image/webp", []string{"image/png"}, false},
		{"wildcard category match", "image/webp", []string{"image/*"}, true},
		{"wildcard category mismatch", "video/mp4", []string{"image/*"}, false},
		{"second pattern matches", "video/mp4", []string{"image/*", "video/*"}, true},
		{"empty list accepts anything", "application/pdf", nil, true},
		{"bare category matches its wildcard", "image", []string{"image/*"}, true},
		{"exact does not cross categories", "video/png", []string{"image/png"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.IncomingFile{Name: "x", MIMEType: tt.mimeType, Size: 100}
			err := Validate(f, tt.accepted, 50)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				for _, pattern := range tt.accepted {
					assert.Contains(t, vErr.Reason, pattern, "reason lists the accepted patterns")
				}
			}
		})
	}
}
