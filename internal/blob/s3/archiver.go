package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// HistoryPrefix is where archived scan history lives in the bucket.
const HistoryPrefix = "archive/history/"

// jsonlContentType is the media type of archived history files.
const jsonlContentType = "application/x-ndjson"

// multipartThreshold is the payload size above which uploads switch to the
// multipart manager.
const multipartThreshold = 16 * 1024 * 1024

// HistorySource is the slice of domain.HistoryStore the archiver needs.
type HistorySource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// HistoryArchiver implements domain.Archiver. It writes history older than a
// cutoff to archive/history/YYYY-MM.jsonl, records the run in the audit log
// and then deletes the archived rows.
type HistoryArchiver struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	history HistorySource
	audit   domain.AuditStore
}

// NewArchiver creates a HistoryArchiver.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, history HistorySource, audit domain.AuditStore) *HistoryArchiver {
	return &HistoryArchiver{writer: writer, reader: reader, history: history, audit: audit}
}

// ArchiveHistory moves every entry older than before into object storage and
// returns how many entries were archived. Nothing is deleted unless the
// upload and the audit record both succeed.
func (a *HistoryArchiver) ArchiveHistory(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.history.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path, err := a.freePath(ctx, before)
	if err != nil {
		return 0, err
	}

	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	count := int64(len(entries))
	if err := a.audit.Log(ctx, "archive.history", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.UTC().Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive history audit log: %w", err)
	}

	if _, err := a.history.DeleteBefore(ctx, before); err != nil {
		return count, fmt.Errorf("s3blob: archive history delete: %w", err)
	}
	return count, nil
}

// freePath returns the month's archive path, suffixed with the cutoff time
// when that month already has an archive.
func (a *HistoryArchiver) freePath(ctx context.Context, before time.Time) (string, error) {
	path := archivePath("history", before)
	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive history exists: %w", err)
	}
	if !exists {
		return path, nil
	}
	return fmt.Sprintf("archive/history/%s-%s.jsonl", before.UTC().Format("2006-01"), before.UTC().Format("20060102T150405")), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time:
//
//	archive/history/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*HistoryArchiver)(nil)
