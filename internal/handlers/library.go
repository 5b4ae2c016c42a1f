package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

const (
	defaultLibraryLimit = 50
	maxLibraryLimit     = 200
)

// CatalogReader reads the queryable side of the media catalog
type CatalogReader interface {
	ListEntries(ctx context.Context, limit int) ([]*models.CatalogEntry, error)
}

// LibraryHandler serves the media-library listing the admin console
// renders, read through the Redis cache.
type LibraryHandler struct {
	catalog CatalogReader
	cache   LibraryCache
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(catalog CatalogReader, cache LibraryCache) *LibraryHandler {
	return &LibraryHandler{
		catalog: catalog,
		cache:   cache,
	}
}

// LibraryResponse is the listing envelope
type LibraryResponse struct {
	Items []*models.CatalogEntry `json:"items"`
	Count int                    `json:"count"`
}

// ServeHTTP handles GET /api/media?limit=N. Only the default-limit
// listing is cached; custom limits go straight to the catalog.
func (lh *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "list_media",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	limit := parseLimit(r.URL.Query().Get("limit"))
	span.SetAttributes(attribute.Int("limit", limit))

	if limit == defaultLibraryLimit {
		if entries := lh.fromCache(ctx); entries != nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			writeJSON(w, http.StatusOK, LibraryResponse{Items: entries, Count: len(entries)})
			return
		}
	}

	entries, err := lh.catalog.ListEntries(ctx, limit)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "failed to list media", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.CatalogEntry{}
	}

	if limit == defaultLibraryLimit {
		lh.toCache(ctx, entries)
	}

	writeJSON(w, http.StatusOK, LibraryResponse{Items: entries, Count: len(entries)})
}

func (lh *LibraryHandler) fromCache(ctx context.Context) []*models.CatalogEntry {
	if lh.cache == nil {
		return nil
	}
	entries, err := lh.cache.GetLibraryListing(ctx)
	if err != nil {
		// Log error but fall through to the catalog
		log.Warn().Err(err).Msg("library cache read failed")
		return nil
	}
	return entries
}

func (lh *LibraryHandler) toCache(ctx context.Context, entries []*models.CatalogEntry) {
	if lh.cache == nil {
		return
	}
	if err := lh.cache.SetLibraryListing(ctx, entries); err != nil {
		log.Warn().Err(err).Msg("library cache write failed")
	}
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLibraryLimit
	}
	if limit > maxLibraryLimit {
		return maxLibraryLimit
	}
	return limit
}
