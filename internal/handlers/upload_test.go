package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeyjoe808/pureohana-sub000/internal/ingest"
	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

type putCall struct {
	bucket      string
	path        string
	contentType string
	data        []byte
	overwrite   bool
}

type fakeStore struct {
	mu   sync.Mutex
	puts []putCall
	err  error
}

func (s *fakeStore) Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string, overwrite bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.puts = append(s.puts, putCall{
		bucket:      bucket,
		path:        objectPath,
		contentType: contentType,
		data:        append([]byte(nil), data...),
		overwrite:   overwrite,
	})
	return s.PublicURL(bucket, objectPath), nil
}

func (s *fakeStore) PublicURL(bucket, objectPath string) string {
	return "http://store.test/" + bucket + "/" + objectPath
}

func (s *fakeStore) calls() []putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]putCall(nil), s.puts...)
}

type fakeCatalog struct {
	mu      sync.Mutex
	entries []*models.CatalogEntry
	listed  []*models.CatalogEntry
	slots   []*models.SectionSlot
}

func (c *fakeCatalog) RecordEntry(ctx context.Context, entry *models.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *fakeCatalog) ListEntries(ctx context.Context, limit int) ([]*models.CatalogEntry, error) {
	return c.listed, nil
}

func (c *fakeCatalog) UpsertSectionSlot(ctx context.Context, slot *models.SectionSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = append(c.slots, slot)
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	listing     []*models.CatalogEntry
	invalidated int
	sets        int
}

func (c *fakeCache) GetLibraryListing(ctx context.Context) ([]*models.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listing, nil
}

func (c *fakeCache) SetLibraryListing(ctx context.Context, entries []*models.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listing = entries
	c.sets++
	return nil
}

func (c *fakeCache) InvalidateLibraryListing(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listing = nil
	c.invalidated++
	return nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func testDefaults() ingest.Options {
	return ingest.Options{
		Bucket:        "media",
		Folder:        "uploads",
		AcceptedTypes: []string{"image/*", "video/*"},
		MaxSizeMB:     50,
	}
}

func TestUploadHandlerStoresFileAndInvalidatesCache(t *testing.T) {
	store := &fakeStore{}
	catalog := &fakeCatalog{}
	cache := &fakeCache{}
	handler := NewUploadHandler(store, catalog, cache, testDefaults())

	body, contentType := multipartBody(t, "gallery.png", "image/png", pngBytes(t, 40, 30), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result models.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.URL, "http://store.test/media/uploads/"))
	assert.Equal(t, "gallery.png", result.FileName)

	puts := store.calls()
	require.Len(t, puts, 1)
	assert.False(t, puts[0].overwrite, "library uploads never overwrite")
	assert.Equal(t, "image/png", puts[0].contentType)

	assert.Equal(t, 1, cache.invalidated)

	handler.Drain()
	require.Len(t, catalog.entries, 1)
	assert.Equal(t, 40, catalog.entries[0].Width)
	assert.Equal(t, 30, catalog.entries[0].Height)
}

func TestUploadHandlerRejectsOversizedFile(t *testing.T) {
	store := &fakeStore{}
	defaults := testDefaults()
	defaults.MaxSizeMB = 1
	handler := NewUploadHandler(store, &fakeCatalog{}, &fakeCache{}, defaults)

	body, contentType := multipartBody(t, "huge.mp4", "video/mp4", bytes.Repeat([]byte("x"), 2*1024*1024), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit")
	assert.Empty(t, store.calls())
}

func TestUploadHandlerSniffsMissingContentType(t *testing.T) {
	store := &fakeStore{}
	defaults := testDefaults()
	defaults.AcceptedTypes = []string{"image/*"}
	handler := NewUploadHandler(store, &fakeCatalog{}, &fakeCache{}, defaults)

	// no declared content type: the payload is sniffed as image/png
	body, contentType := multipartBody(t, "photo", "", pngBytes(t, 10, 10), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	puts := store.calls()
	require.Len(t, puts, 1)
	assert.Equal(t, "image/png", puts[0].contentType)
}

func TestUploadHandlerRejectsFolderTraversal(t *testing.T) {
	handler := NewUploadHandler(&fakeStore{}, &fakeCatalog{}, &fakeCache{}, testDefaults())

	body, contentType := multipartBody(t, "a.png", "image/png", pngBytes(t, 4, 4), map[string]string{"folder": "../secrets"})
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerGeneratesThumbnailWhenRequested(t *testing.T) {
	store := &fakeStore{}
	handler := NewUploadHandler(store, &fakeCatalog{}, &fakeCache{}, testDefaults())

	body, contentType := multipartBody(t, "wide.png", "image/png", pngBytes(t, 600, 200), map[string]string{"thumbnail": "true"})
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result models.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.ThumbnailURL, "/thumbnails/")

	puts := store.calls()
	require.Len(t, puts, 2)
	assert.Contains(t, puts[1].path, "uploads/thumbnails/")
}
