package archive

import (
	"context"
	"errors"
	"fmt"

	"cloudpico-analysis/internal/bounds"
	"cloudpico-analysis/internal/pathrecord"
)

// ErrNoTimestamp is returned for documents without a usable timestamp.
var ErrNoTimestamp = errors.New("no ISO 8601 timestamp")

// DefaultRecPath is where sample documents carry their timestamp.
const DefaultRecPath = "rec"

// Stats counts the outcome of archiving a stream.
type Stats struct {
	Documents  int
	Archived   int
	Duplicates int
	Rejected   int
}

// Archiver converts records into Documents and stores them.
type Archiver struct {
	repo    Repository
	recPath string
	Stats   Stats
}

func NewArchiver(repo Repository, recPath string) *Archiver {
	if recPath == "" {
		recPath = DefaultRecPath
	}
	return &Archiver{repo: repo, recPath: recPath}
}

// Archive stores rec. Documents whose timestamp is missing or not ISO 8601
// are counted as rejected and reported with ErrNoTimestamp.
func (a *Archiver) Archive(ctx context.Context, rec *pathrecord.Record) error {
	a.Stats.Documents++

	doc, err := a.document(rec)
	if err != nil {
		a.Stats.Rejected++
		return err
	}

	inserted, err := a.repo.Insert(ctx, doc)
	if err != nil {
		return err
	}
	if inserted {
		a.Stats.Archived++
	} else {
		a.Stats.Duplicates++
	}
	return nil
}

func (a *Archiver) document(rec *pathrecord.Record) (Document, error) {
	v, err := rec.Node(a.recPath)
	if err != nil {
		return Document{}, fmt.Errorf("%w: path '%s' not found", ErrNoTimestamp, a.recPath)
	}
	p, err := bounds.Cast(bounds.ISO8601, v)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNoTimestamp, err)
	}
	s, _ := v.Str()
	return Document{Rec: s, At: p.Time(), Body: rec.String()}, nil
}
