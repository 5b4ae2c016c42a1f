package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeyjoe808/pureohana-sub000/internal/ingest"
	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

var slotPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// SlotRecorder upserts the section_slots row for a replaced photo
type SlotRecorder interface {
	UpsertSectionSlot(ctx context.Context, slot *models.SectionSlot) error
}

// SectionHandler handles the "replace this section's photo" flow: every
// slot has one fixed object key that is overwritten in place, unlike
// media-library uploads which never overwrite.
type SectionHandler struct {
	store     ingest.ObjectStore
	catalog   SlotRecorder
	bucket    string
	maxSizeMB int64
}

// NewSectionHandler creates a new section-slot handler
func NewSectionHandler(store ingest.ObjectStore, catalog SlotRecorder, bucket string, maxSizeMB int64) *SectionHandler {
	return &SectionHandler{
		store:     store,
		catalog:   catalog,
		bucket:    bucket,
		maxSizeMB: maxSizeMB,
	}
}

// ServeHTTP handles PUT /api/sections/{slot}/photo with a multipart
// "file" part. Only images are accepted.
func (sh *SectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "replace_section_photo",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	slot := mux.Vars(r)["slot"]
	if !slotPattern.MatchString(slot) {
		http.Error(w, "invalid slot name", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("slot", slot))

	f, err := sh.parseFile(r)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := ingest.Validate(f, []string{"image/*"}, sh.maxSizeMB); err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// fixed logical key per slot, replaced in place
	objectPath := "sections/" + slot + slotExtension(f)
	url, err := sh.store.Put(ctx, sh.bucket, objectPath, f.Data, f.MIMEType, true)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "failed to store photo", http.StatusBadGateway)
		return
	}

	record := &models.SectionSlot{
		Slot:      slot,
		PublicURL: url,
		MIMEType:  f.MIMEType,
		UpdatedAt: time.Now(),
	}
	if err := sh.catalog.UpsertSectionSlot(ctx, record); err != nil {
		span.RecordError(err)
		http.Error(w, "failed to record section photo", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
	log.Info().Str("slot", slot).Str("url", url).Msg("section photo replaced")
}

func (sh *SectionHandler) parseFile(r *http.Request) (models.IncomingFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return models.IncomingFile{}, errors.New("expected a multipart form with a 'file' part")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.IncomingFile{}, errors.New("missing 'file' part")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.IncomingFile{}, errors.New("failed to read file payload")
	}

	return models.IncomingFile{
		Name:     header.Filename,
		MIMEType: declaredOrSniffedType(header.Header.Get("Content-Type"), data),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// slotExtension keeps the uploaded file's extension on the fixed key,
// falling back to the sniffed type's extension when the name has none.
func slotExtension(f models.IncomingFile) string {
	if ext := ingest.Extension(f.Name); ext != "" {
		return "." + ext
	}
	return mimetype.Detect(f.Data).Extension()
}
