package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeyjoe808/pureohana-sub000/internal/ingest"
	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

var tracer = otel.Tracer("pureohana-handlers")

const maxMultipartMemory = 32 << 20

// LibraryCache is the cached media-library listing the handlers read
// through and invalidate.
type LibraryCache interface {
	GetLibraryListing(ctx context.Context) ([]*models.CatalogEntry, error)
	SetLibraryListing(ctx context.Context, entries []*models.CatalogEntry) error
	InvalidateLibraryListing(ctx context.Context) error
}

// UploadHandler handles general media-library uploads. Each request gets
// its own ingest pipeline instance, mirroring the one-in-flight-per-form
// contract the admin console relies on.
type UploadHandler struct {
	store    ingest.ObjectStore
	catalog  ingest.CatalogRecorder
	cache    LibraryCache
	defaults ingest.Options

	writes sync.WaitGroup
}

// NewUploadHandler creates a new upload handler. defaults supplies the
// pipeline configuration requests may narrow but not widen.
func NewUploadHandler(store ingest.ObjectStore, catalog ingest.CatalogRecorder, cache LibraryCache, defaults ingest.Options) *UploadHandler {
	return &UploadHandler{
		store:    store,
		catalog:  catalog,
		cache:    cache,
		defaults: defaults,
	}
}

// ServeHTTP handles POST /api/media with a multipart "file" part.
// Optional form fields: "folder" (sub-folder override) and "thumbnail"
// ("true"/"false"). General uploads never overwrite: keys are
// collision-avoidant and create-only.
func (uh *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "upload_media",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	f, opts, err := uh.parseRequest(r)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("file_name", f.Name),
		attribute.String("mime_type", f.MIMEType),
		attribute.Int64("size_bytes", f.Size),
	)

	ing := ingest.New(uh.store, uh.catalog, opts)
	if _, err := ing.Upload(ctx, f); err != nil {
		span.RecordError(err)
		writeUploadError(w, err)
		return
	}

	// track the detached catalog write so shutdown can flush it
	uh.writes.Add(1)
	go func() {
		defer uh.writes.Done()
		ing.Drain()
	}()

	uh.invalidateListing(ctx)

	writeJSON(w, http.StatusCreated, ing.Outcome())
	log.Info().Str("file", f.Name).Str("url", ing.Outcome().URL).Msg("media upload completed")
}

// Drain blocks until all catalog writes dispatched by this handler have
// finished. Called during graceful shutdown.
func (uh *UploadHandler) Drain() {
	uh.writes.Wait()
}

func (uh *UploadHandler) parseRequest(r *http.Request) (models.IncomingFile, ingest.Options, error) {
	opts := uh.defaults

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return models.IncomingFile{}, opts, errors.New("expected a multipart form with a 'file' part")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.IncomingFile{}, opts, errors.New("missing 'file' part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.IncomingFile{}, opts, errors.New("failed to read file payload")
	}

	if folder := r.FormValue("folder"); folder != "" {
		if strings.Contains(folder, "..") || strings.HasPrefix(folder, "/") {
			return models.IncomingFile{}, opts, errors.New("invalid folder")
		}
		opts.Folder = folder
	}
	if v := r.FormValue("thumbnail"); v != "" {
		if thumb, err := strconv.ParseBool(v); err == nil {
			opts.GenerateThumbnail = thumb
		}
	}

	return models.IncomingFile{
		Name:     header.Filename,
		MIMEType: declaredOrSniffedType(header.Header.Get("Content-Type"), data),
		Size:     int64(len(data)),
		Data:     data,
	}, opts, nil
}

func (uh *UploadHandler) invalidateListing(ctx context.Context) {
	if uh.cache == nil {
		return
	}
	if err := uh.cache.InvalidateLibraryListing(ctx); err != nil {
		// Log error but don't fail the request
		log.Warn().Err(err).Msg("failed to invalidate library cache")
	}
}

// declaredOrSniffedType trusts the part's declared content type unless it
// is missing or the browser's generic fallback, in which case the payload
// is sniffed.
func declaredOrSniffedType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func writeUploadError(w http.ResponseWriter, err error) {
	var vErr *ingest.ValidationError
	var sErr *ingest.StorageError
	switch {
	case errors.As(err, &vErr):
		http.Error(w, vErr.Error(), http.StatusBadRequest)
	case errors.As(err, &sErr):
		http.Error(w, sErr.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
