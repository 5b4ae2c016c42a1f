// Package ingest implements the media ingestion pipeline: validate a
// user-selected file, derive a collision-resistant storage key, probe
// image dimensions, optionally generate a thumbnail, store the payload
// durably and record a catalog row. Storage and catalog backends are
// injected, so the pipeline is testable against fakes.
package ingest

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

var tracer = otel.Tracer("pureohana-ingest")

// catalogWriteTimeout bounds the detached catalog write; the write is
// decoupled from the request context on purpose.
const catalogWriteTimeout = 10 * time.Second

// ObjectStore is the storage boundary the pipeline writes through. Put
// stores data under bucket/path and returns the object's public URL;
// when overwrite is false an existing object at that path is an error.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string, overwrite bool) (string, error)
	PublicURL(bucket, objectPath string) string
}

// CatalogRecorder is the metadata boundary: a best-effort insert of one
// media_library row per successful upload.
type CatalogRecorder interface {
	RecordEntry(ctx context.Context, entry *models.CatalogEntry) error
}

// Options configures one Ingestor. Zero values fall back to the
// pipeline defaults: bucket "media", folder "uploads", image/video
// types, a 50 MB size cap and no thumbnails.
type Options struct {
	Bucket            string
	Folder            string
	AcceptedTypes     []string
	MaxSizeMB         int64
	GenerateThumbnail bool

	// OnSuccess runs after each successful upload, OnError after each
	// failed one. Both are optional and invoked synchronously.
	OnSuccess func(url string, f models.IncomingFile)
	OnError   func(err error)
}

func (o *Options) applyDefaults() {
	if o.Bucket == "" {
		o.Bucket = "media"
	}
	if o.Folder == "" {
		o.Folder = "uploads"
	}
	if o.AcceptedTypes == nil {
		o.AcceptedTypes = []string{"image/*", "video/*"}
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 50
	}
}

// State is a snapshot of an Ingestor's observable upload state
type State struct {
	Uploading   bool
	Progress    int
	Err         error
	UploadedURL string
}

// Ingestor orchestrates the upload pipeline for one caller. It carries
// the state of one in-flight call at a time; a second Upload while one
// is running is rejected with ErrUploadInFlight.
type Ingestor struct {
	store   ObjectStore
	catalog CatalogRecorder
	thumbs  *Thumbnailer
	opts    Options

	mu      sync.Mutex
	state   State
	outcome models.UploadResult

	pending sync.WaitGroup
}

// New creates an Ingestor writing through store, recording through
// catalog (which may be nil to skip catalog rows entirely).
func New(store ObjectStore, catalog CatalogRecorder, opts Options) *Ingestor {
	opts.applyDefaults()
	return &Ingestor{
		store:   store,
		catalog: catalog,
		thumbs:  NewThumbnailer(store),
		opts:    opts,
	}
}

// State returns a snapshot of the current upload state
func (ing *Ingestor) State() State {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.state
}

// Outcome returns the result of the last successful upload
func (ing *Ingestor) Outcome() models.UploadResult {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.outcome
}

// Upload runs the full pipeline for one file and returns the stored
// original's public URL. Validation failures and original-asset storage
// failures are returned (and reported through OnError); thumbnail and
// catalog failures degrade silently. The returned URL is "" on failure.
func (ing *Ingestor) Upload(ctx context.Context, f models.IncomingFile) (string, error) {
	if err := ing.begin(); err != nil {
		return "", err
	}

	url, err := ing.run(ctx, f)
	ing.finish(url, err)

	if err != nil {
		if ing.opts.OnError != nil {
			ing.opts.OnError(err)
		}
		return "", err
	}
	if ing.opts.OnSuccess != nil {
		ing.opts.OnSuccess(url, f)
	}
	return url, nil
}

// UploadMultiple uploads files one at a time and returns the public URLs
// of the ones that succeeded, in input order. A failed file is reported
// through OnError and skipped; the rest of the batch still runs.
// Progress tracks completed files as a percentage of the batch.
func (ing *Ingestor) UploadMultiple(ctx context.Context, files []models.IncomingFile) []string {
	if len(files) == 0 {
		ing.setProgress(100)
		return nil
	}

	urls := make([]string, 0, len(files))
	for i, f := range files {
		if url, err := ing.Upload(ctx, f); err == nil {
			urls = append(urls, url)
		}
		ing.setProgress((i + 1) * 100 / len(files))
	}
	return urls
}

// Drain blocks until all detached catalog writes dispatched by this
// Ingestor have finished. Intended for graceful shutdown and tests;
// regular callers never need it.
func (ing *Ingestor) Drain() {
	ing.pending.Wait()
}

func (ing *Ingestor) run(ctx context.Context, f models.IncomingFile) (string, error) {
	ctx, span := tracer.Start(ctx, "ingest.upload",
		trace.WithAttributes(
			attribute.String("file_name", f.Name),
			attribute.String("mime_type", f.MIMEType),
			attribute.Int64("size_bytes", f.Size),
		),
	)
	defer span.End()

	if err := Validate(f, ing.opts.AcceptedTypes, ing.opts.MaxSizeMB); err != nil {
		span.RecordError(err)
		return "", err
	}
	ing.setProgress(10)

	key := GenerateKey(f.Name)
	span.SetAttributes(attribute.String("object_key", key))

	dims := ProbeDimensions(f)
	ing.setProgress(25)

	// original first; keys are collision-avoidant so this is create-only
	objectPath := path.Join(ing.opts.Folder, key)
	url, err := ing.store.Put(ctx, ing.opts.Bucket, objectPath, f.Data, contentTypeOf(f), false)
	if err != nil {
		span.RecordError(err)
		return "", &StorageError{Op: "original", Err: err}
	}
	ing.setProgress(70)

	var thumbURL string
	if ing.opts.GenerateThumbnail && isImage(f.MIMEType) {
		thumbURL = ing.thumbs.Generate(ctx, f, ing.opts.Bucket, ing.opts.Folder)
	}
	ing.setProgress(90)

	entry := &models.CatalogEntry{
		ID:           uuid.New().String(),
		FileName:     f.Name,
		PublicURL:    url,
		MIMEType:     f.MIMEType,
		SizeBytes:    f.Size,
		ThumbnailURL: thumbURL,
		CreatedAt:    time.Now(),
	}
	if dims != nil {
		entry.Width = dims.Width
		entry.Height = dims.Height
	}
	ing.recordEntry(entry)

	ing.mu.Lock()
	ing.outcome = models.UploadResult{
		URL:          url,
		ThumbnailURL: thumbURL,
		FileName:     f.Name,
		SizeBytes:    f.Size,
		Preview:      PreviewKind(url),
	}
	ing.mu.Unlock()

	return url, nil
}

// recordEntry dispatches the catalog write as a detached task. Its
// failure is logged and discarded: a missing catalog row never
// invalidates a stored upload.
func (ing *Ingestor) recordEntry(entry *models.CatalogEntry) {
	if ing.catalog == nil {
		return
	}
	ing.pending.Add(1)
	go func() {
		defer ing.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), catalogWriteTimeout)
		defer cancel()
		if err := ing.catalog.RecordEntry(ctx, entry); err != nil {
			log.Warn().Err(err).Str("file", entry.FileName).Msg("catalog write failed")
		}
	}()
}

func (ing *Ingestor) begin() error {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.state.Uploading {
		return ErrUploadInFlight
	}
	ing.state = State{Uploading: true}
	return nil
}

func (ing *Ingestor) finish(url string, err error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.state.Uploading = false
	ing.state.Err = err
	if err == nil {
		ing.state.UploadedURL = url
		ing.state.Progress = 100
	}
}

func (ing *Ingestor) setProgress(pct int) {
	ing.mu.Lock()
	ing.state.Progress = pct
	ing.mu.Unlock()
}

func contentTypeOf(f models.IncomingFile) string {
	if f.MIMEType != "" {
		return f.MIMEType
	}
	return "application/octet-stream"
}
