package ingest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

// Validate checks a file's declared size and MIME type before any I/O.
// Each accepted pattern is either an exact MIME string ("image/png") or a
// category wildcard ("image/*"). An empty pattern list accepts every type.
// The payload itself is never opened.
func Validate(f models.IncomingFile, accepted []string, maxSizeMB int64) error {
	if maxSizeMB > 0 && f.Size > maxSizeMB*1024*1024 {
		return &ValidationError{
			Reason: fmt.Sprintf("file size %s exceeds the %s limit",
				humanize.IBytes(uint64(f.Size)),
				humanize.IBytes(uint64(maxSizeMB)*1024*1024)),
		}
	}

	if len(accepted) == 0 {
		return nil
	}

	for _, pattern := range accepted {
		if typeMatches(f.MIMEType, pattern) {
			return nil
		}
	}

	return &ValidationError{
		Reason: fmt.Sprintf("type %q is not accepted (accepted types: %s)",
			f.MIMEType, strings.Join(accepted, ", ")),
	}
}

func typeMatches(mimeType, pattern string) bool {
	if category, ok := strings.CutSuffix(pattern, "/*"); ok {
		return mimeCategory(mimeType) == category
	}
	return mimeType == pattern
}

func mimeCategory(mimeType string) string {
	if i := strings.Index(mimeType, "/"); i >= 0 {
		return mimeType[:i]
	}
	return mimeType
}

func isImage(mimeType string) bool {
	return mimeCategory(mimeType) == "image"
}
