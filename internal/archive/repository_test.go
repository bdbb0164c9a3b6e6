package archive

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cloudpico-analysis/internal/db/migrate"
	"cloudpico-analysis/internal/pathrecord"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(context.Background(), db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func replayAll(t *testing.T, repo Repository, r Range) []Document {
	t.Helper()
	var out []Document
	if err := repo.Replay(context.Background(), r, func(d Document) error {
		out = append(out, d)
		return nil
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return out
}

func TestInsert_Duplicate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	doc := Document{Rec: "2019-01-01T00:00:00Z", At: mustTime(t, "2019-01-01T00:00:00Z"), Body: `{"v":1}`}

	inserted, err := repo.Insert(ctx, doc)
	if err != nil || !inserted {
		t.Fatalf("Insert: inserted=%v err=%v, want true nil", inserted, err)
	}
	inserted, err = repo.Insert(ctx, doc)
	if err != nil || inserted {
		t.Fatalf("second Insert: inserted=%v err=%v, want false nil", inserted, err)
	}

	doc.Body = `{"v":2}`
	if inserted, err = repo.Insert(ctx, doc); err != nil || !inserted {
		t.Fatalf("Insert with new body: inserted=%v err=%v", inserted, err)
	}
}

func TestReplay_OrderAndRange(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	recs := []string{
		"2019-01-01T02:00:00Z",
		"2019-01-01T00:00:00Z",
		"2019-01-01T03:00:00+02:00",
		"2019-01-01T03:00:00Z",
	}
	for i, rec := range recs {
		doc := Document{Rec: rec, At: mustTime(t, rec), Body: rec}
		if _, err := repo.Insert(ctx, doc); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	all := replayAll(t, repo, Range{})
	want := []string{
		"2019-01-01T00:00:00Z",
		"2019-01-01T03:00:00+02:00",
		"2019-01-01T02:00:00Z",
		"2019-01-01T03:00:00Z",
	}
	if len(all) != len(want) {
		t.Fatalf("Replay: got %d documents, want %d", len(all), len(want))
	}
	for i := range want {
		if all[i].Rec != want[i] {
			t.Errorf("document %d: got %s, want %s", i, all[i].Rec, want[i])
		}
	}
	if !all[1].At.Equal(mustTime(t, "2019-01-01T01:00:00Z")) {
		t.Errorf("At = %v, want 01:00Z", all[1].At)
	}

	rng := Range{Start: mustTime(t, "2019-01-01T01:00:00Z"), End: mustTime(t, "2019-01-01T03:00:00Z")}
	sub := replayAll(t, repo, rng)
	if len(sub) != 2 || sub[0].Rec != want[1] || sub[1].Rec != want[2] {
		t.Errorf("Replay(range) = %+v", sub)
	}

	n, err := repo.Count(ctx, rng)
	if err != nil || n != 2 {
		t.Errorf("Count(range) = %d, %v, want 2", n, err)
	}
	n, err = repo.Count(ctx, Range{Start: mustTime(t, "2019-01-01T02:00:00Z")})
	if err != nil || n != 2 {
		t.Errorf("Count(open end) = %d, %v, want 2", n, err)
	}
}

func TestReplay_CallbackError(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	for _, rec := range []string{"2019-01-01T00:00:00Z", "2019-01-02T00:00:00Z"} {
		if _, err := repo.Insert(ctx, Document{Rec: rec, At: mustTime(t, rec), Body: rec}); err != nil {
			t.Fatal(err)
		}
	}

	stop := errors.New("stop")
	calls := 0
	err := repo.Replay(ctx, Range{}, func(Document) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("Replay: err=%v calls=%d, want stop after 1", err, calls)
	}
}

func TestArchiver(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	a := NewArchiver(repo, "")
	ctx := context.Background()

	lines := []string{
		`{"rec":"2019-01-01T00:00:00Z","val":{"tmp":1.5}}`,
		`{"rec":"2019-01-01T00:00:00Z", "val":{"tmp":1.5}}`,
		`{"val":{"tmp":2}}`,
		`{"rec":"yesterday"}`,
		`{"rec":"2019-01-01T00:01:00Z","val":{"tmp":2.5}}`,
	}
	var rejected int
	for _, line := range lines {
		rec, err := pathrecord.Parse(line)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Archive(ctx, rec); err != nil {
			if !errors.Is(err, ErrNoTimestamp) {
				t.Fatalf("Archive(%s) error = %v", line, err)
			}
			rejected++
		}
	}

	want := Stats{Documents: 5, Archived: 2, Duplicates: 1, Rejected: 2}
	if a.Stats != want {
		t.Errorf("Stats = %+v, want %+v", a.Stats, want)
	}
	if rejected != 2 {
		t.Errorf("rejected = %d, want 2", rejected)
	}

	docs := replayAll(t, repo, Range{})
	if len(docs) != 2 || docs[0].Body != `{"rec":"2019-01-01T00:00:00Z","val":{"tmp":1.5}}` {
		t.Errorf("archived = %+v", docs)
	}
}

func TestArchiver_CustomPath(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	a := NewArchiver(repo, "meta.time")

	rec, err := pathrecord.Parse(`{"meta":{"time":"2020-05-01T12:00:00+01:00"},"v":1}`)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Archive(context.Background(), rec); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	docs := replayAll(t, repo, Range{})
	if len(docs) != 1 || docs[0].Rec != "2020-05-01T12:00:00+01:00" || !docs[0].At.Equal(mustTime(t, "2020-05-01T11:00:00Z")) {
		t.Errorf("archived = %+v", docs)
	}
}
