package odb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/telerr"
	"github.com/telos-vcs/telos/internal/types"
)

func newTestDB(t *testing.T) *ObjectDatabase {
	t.Helper()
	return New(t.TempDir(), nil)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	intent := types.Intent{Statement: "add feature", Timestamp: time.Unix(0, 0).UTC()}
	id, err := db.Write(ctx, types.TagIntent, intent)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !db.Exists(id) {
		t.Fatal("expected Exists(id) true after Write")
	}

	tag, value, err := db.Read(ctx, id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tag != types.TagIntent {
		t.Errorf("tag = %q, want %q", tag, types.TagIntent)
	}
	got := value.(types.Intent)
	if got.Statement != "add feature" {
		t.Errorf("Statement = %q, want %q", got.Statement, "add feature")
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	intent := types.Intent{Statement: "same content", Timestamp: time.Unix(0, 0).UTC()}

	first, err := db.Write(ctx, types.TagIntent, intent)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	second, err := db.Write(ctx, types.TagIntent, intent)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("ids differ across idempotent writes: %s vs %s", first, second)
	}

	entries, err := db.IterAll(ctx)
	if err != nil {
		t.Fatalf("IterAll: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("IterAll returned %d entries, want 1 (no duplicate written)", len(entries))
	}
}

func TestReadMissingObjectReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	missing, err := hashOf(t, db, types.TagIntent, types.Intent{Statement: "never written"})
	if err != nil {
		t.Fatalf("hashOf: %v", err)
	}
	if _, _, err := db.Read(ctx, missing); !errors.Is(err, telerr.ErrObjectNotFound) {
		t.Fatalf("Read missing = %v, want ErrObjectNotFound", err)
	}
}

func hashOf(t *testing.T, db *ObjectDatabase, tag types.Tag, v interface{}) (objectid.ID, error) {
	t.Helper()
	ctx := context.Background()
	id, err := db.Write(ctx, tag, v)
	if err != nil {
		return objectid.ID{}, err
	}
	// Remove the just-written file so its id is guaranteed absent, without
	// touching any other fixture written by the same test.
	dir, file := id.FanOut()
	if err := os.Remove(filepath.Join(db.dir, dir, file)); err != nil {
		t.Fatalf("remove fixture object: %v", err)
	}
	return id, nil
}

func TestReadDetectsCorruption(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "original", Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	dir, file := id.FanOut()
	path := filepath.Join(db.dir, dir, file)
	if err := os.WriteFile(path, []byte("intent\x00{\"statement\":\"tampered\"}"), 0o644); err != nil {
		t.Fatalf("tamper with object file: %v", err)
	}

	_, _, err = db.Read(ctx, id)
	var integrityErr *telerr.IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Read after tampering = %v, want *IntegrityError", err)
	}
}

func TestResolvePrefixRejectsShortPrefix(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.ResolvePrefix("abc"); !errors.Is(err, telerr.ErrObjectNotFound) {
		t.Fatalf("ResolvePrefix(\"abc\") = %v, want ErrObjectNotFound", err)
	}
}

func TestResolvePrefixUniqueMatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.Write(ctx, types.TagIntent, types.Intent{Statement: "unique", Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	resolved, err := db.ResolvePrefix(id.String()[:8])
	if err != nil {
		t.Fatalf("ResolvePrefix: %v", err)
	}
	if resolved.String() != id.String() {
		t.Errorf("resolved = %s, want %s", resolved, id)
	}
}

func TestResolvePrefixAmbiguous(t *testing.T) {
	db := newTestDB(t)

	dir := filepath.Join(db.dir, "aa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, rest := range []string{"1111111111111111111111111111111111111111111111111111111111", "1122222222222222222222222222222222222222222222222222222222"} {
		if err := os.WriteFile(filepath.Join(dir, rest), []byte("intent\x00{}"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	var ambiguousErr *telerr.AmbiguousPrefixError
	if _, err := db.ResolvePrefix("aa11"); !errors.As(err, &ambiguousErr) {
		t.Fatalf("ResolvePrefix(\"aa11\") = %v, want *AmbiguousPrefixError", err)
	}
}

func TestIterAllSkipsMalformedEntries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(db.dir, "zz"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(db.dir, "zz", "not-hex!!"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	entries, err := db.IterAll(ctx)
	if err != nil {
		t.Fatalf("IterAll: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected malformed entry to be skipped, got %d entries", len(entries))
	}
}
