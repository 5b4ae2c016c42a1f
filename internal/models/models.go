package models

import "time"

// IncomingFile is the caller-supplied payload for one upload: the raw bytes
// plus the name, MIME type and size the client declared for them.
type IncomingFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// UploadResult describes where one successful upload landed
type UploadResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
	Preview      string `json:"preview,omitempty"`
}

// CatalogEntry represents a row in the media_library table. Width, Height
// and ThumbnailURL are zero-valued when unknown and stored as NULL.
type CatalogEntry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	PublicURL    string    `json:"public_url"`
	MIMEType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SectionSlot represents a row in the section_slots table: one fixed
// photo slot on the site (hero banner, about portrait, ...) whose object
// key is stable and replaced in place.
type SectionSlot struct {
	Slot      string    `json:"slot"`
	PublicURL string    `json:"public_url"`
	MIMEType  string    `json:"mime_type"`
	UpdatedAt time.Time `json:"updated_at"`
}
