package ingest

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var keyFormat = regexp.MustCompile(`^\d{13}_\d{1,3}\.[a-z0-9]+$`)

func TestGenerateKeyFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := GenerateKey("beach.jpg")
		assert.Regexp(t, keyFormat, key)
		assert.True(t, strings.HasSuffix(key, ".jpg"))
	}
}

func TestGenerateKeyLowercasesExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(GenerateKey("Portrait.JPG"), ".jpg"))
	assert.True(t, strings.HasSuffix(GenerateKey("slides.PnG"), ".png"))
}

func TestGenerateKeyUsesLastExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(GenerateKey("gallery.backup.png"), ".png"))
}

func TestGenerateKeyWithoutExtension(t *testing.T) {
	key := GenerateKey("README")
	assert.Regexp(t, regexp.MustCompile(`^\d{13}_\d{1,3}$`), key)
	assert.NotContains(t, key, ".")
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"beach.jpg", "jpg"},
		{"Beach.JPG", "jpg"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{".hidden", "hidden"},
		{"trailing.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Extension(tt.name), tt.name)
	}
}
