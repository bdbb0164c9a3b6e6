// Package archive stores sample documents in SQLite, keyed by their
// timestamp, and replays them in time order.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"
)

//go:embed sql/insert-document.sql
var insertDocumentSQL string

//go:embed sql/get-documents.sql
var getDocumentsSQL string

//go:embed sql/get-documents-count.sql
var getDocumentsCountSQL string

// Document is one archived sample.
type Document struct {
	Rec  string
	At   time.Time
	Body string
}

// Range selects documents with Start <= At < End. A zero Start or End leaves
// that side open.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) bounds() (int64, int64) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !r.Start.IsZero() {
		lo = r.Start.UnixNano()
	}
	if !r.End.IsZero() {
		hi = r.End.UnixNano()
	}
	return lo, hi
}

type Repository interface {
	// Insert stores doc and reports false when an identical document with
	// the same timestamp is already archived.
	Insert(ctx context.Context, doc Document) (bool, error)
	// Replay calls fn for every document in r, oldest first.
	Replay(ctx context.Context, r Range, fn func(Document) error) error
	Count(ctx context.Context, r Range) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Insert(ctx context.Context, doc Document) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertDocumentSQL, doc.Rec, doc.At.UnixNano(), doc.Body)
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	return n > 0, nil
}

func (r *repositoryImpl) Replay(ctx context.Context, rng Range, fn func(Document) error) error {
	lo, hi := rng.bounds()
	rows, err := r.db.QueryContext(ctx, getDocumentsSQL, lo, hi)
	if err != nil {
		return fmt.Errorf("query documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close documents rows", "error", err)
		}
	}()

	for rows.Next() {
		var doc Document
		var ns int64
		if err := rows.Scan(&doc.Rec, &ns, &doc.Body); err != nil {
			return err
		}
		doc.At = time.Unix(0, ns).UTC()
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *repositoryImpl) Count(ctx context.Context, rng Range) (int, error) {
	lo, hi := rng.bounds()
	var n int
	err := r.db.QueryRowContext(ctx, getDocumentsCountSQL, lo, hi).Scan(&n)
	return n, err
}
