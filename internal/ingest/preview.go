package ingest

// extensions the admin console's file pickers render previews for
var previewKinds = map[string]string{
	"jpg":  "image",
	"jpeg": "image",
	"png":  "image",
	"gif":  "image",
	"webp": "image",
	"svg":  "image",
	"mp4":  "video",
	"webm": "video",
	"mov":  "video",
}

// PreviewKind classifies a stored object's URL by extension: "image",
// "video", or "" when no preview applies.
func PreviewKind(url string) string {
	return previewKinds[Extension(url)]
}
