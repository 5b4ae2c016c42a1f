package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

// MySQLClient wraps catalog table operations with tracing. It implements
// ingest.CatalogRecorder.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient initializes a new MySQL client
func NewMySQLClient(dsn string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// RecordEntry inserts one media_library row with tracing. Rows are
// insert-only from this service; deletion belongs to the admin delete
// flows.
func (mc *MySQLClient) RecordEntry(ctx context.Context, entry *models.CatalogEntry) error {
	ctx, span := tracer.Start(ctx, "mysql.record_entry",
		trace.WithAttributes(
			attribute.String("entry_id", entry.ID),
			attribute.String("file_name", entry.FileName),
			attribute.Int64("size_bytes", entry.SizeBytes),
		),
	)
	defer span.End()

	query := `INSERT INTO media_library (id, file_name, public_url, mime_type, size_bytes, width, height, thumbnail_url, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := mc.db.ExecContext(ctx, query,
		entry.ID,
		entry.FileName,
		entry.PublicURL,
		entry.MIMEType,
		entry.SizeBytes,
		nullableInt(entry.Width),
		nullableInt(entry.Height),
		nullableString(entry.ThumbnailURL),
		entry.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert media_library row: %w", err)
	}

	span.SetAttributes(attribute.Bool("insert_success", true))
	return nil
}

// ListEntries retrieves the newest catalog rows with tracing
func (mc *MySQLClient) ListEntries(ctx context.Context, limit int) ([]*models.CatalogEntry, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_entries",
		trace.WithAttributes(
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	query := `SELECT id, file_name, public_url, mime_type, size_bytes, width, height, thumbnail_url, created_at
			  FROM media_library
			  ORDER BY created_at DESC
			  LIMIT ?`

	rows, err := mc.db.QueryContext(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query media_library: %w", err)
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		var entry models.CatalogEntry
		var width, height sql.NullInt64
		var thumbURL sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.FileName,
			&entry.PublicURL,
			&entry.MIMEType,
			&entry.SizeBytes,
			&width,
			&height,
			&thumbURL,
			&entry.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan media_library row: %w", err)
		}
		entry.Width = int(width.Int64)
		entry.Height = int(height.Int64)
		entry.ThumbnailURL = thumbURL.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating media_library rows: %w", err)
	}

	span.SetAttributes(
		attribute.Int("entry_count", len(entries)),
		attribute.Bool("query_success", true),
	)
	return entries, nil
}

// UpsertSectionSlot inserts or replaces a section_slots row with tracing
func (mc *MySQLClient) UpsertSectionSlot(ctx context.Context, slot *models.SectionSlot) error {
	ctx, span := tracer.Start(ctx, "mysql.upsert_section_slot",
		trace.WithAttributes(
			attribute.String("slot", slot.Slot),
		),
	)
	defer span.End()

	query := `INSERT INTO section_slots (slot, public_url, mime_type, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE public_url = VALUES(public_url), mime_type = VALUES(mime_type), updated_at = VALUES(updated_at)`

	_, err := mc.db.ExecContext(ctx, query, slot.Slot, slot.PublicURL, slot.MIMEType, slot.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert section_slots row: %w", err)
	}

	span.SetAttributes(attribute.Bool("upsert_success", true))
	return nil
}

func nullableInt(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
