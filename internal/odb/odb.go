// Package odb implements the content-addressed object database: atomic
// writes, integrity-verified reads, fan-out directory layout, full-scan
// iteration, and hex-prefix resolution.
package odb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cenkalti/backoff/v4"

	"github.com/telos-vcs/telos/internal/codec"
	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/telerr"
	"github.com/telos-vcs/telos/internal/types"
)

const minPrefixLen = 4

var tracer = otel.Tracer("github.com/telos-vcs/telos/internal/odb")

var metrics struct {
	writes       metric.Int64Counter
	reads        metric.Int64Counter
	writeLatency metric.Float64Histogram
	readLatency  metric.Float64Histogram
}

func init() {
	meter := otel.Meter("github.com/telos-vcs/telos/internal/odb")
	metrics.writes, _ = meter.Int64Counter("telos.odb.writes",
		metric.WithDescription("objects written to the object database"))
	metrics.reads, _ = meter.Int64Counter("telos.odb.reads",
		metric.WithDescription("objects read from the object database"))
	metrics.writeLatency, _ = meter.Float64Histogram("telos.odb.write.duration",
		metric.WithDescription("object write latency"), metric.WithUnit("ms"))
	metrics.readLatency, _ = meter.Float64Histogram("telos.odb.read.duration",
		metric.WithDescription("object read latency"), metric.WithUnit("ms"))
}

// ObjectDatabase is a content-addressed file store rooted at dir (typically
// "<repo>/.telos/objects").
type ObjectDatabase struct {
	dir    string
	logger *slog.Logger
}

// New returns an ObjectDatabase rooted at dir. If logger is nil,
// slog.Default() is used.
func New(dir string, logger *slog.Logger) *ObjectDatabase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectDatabase{dir: dir, logger: logger}
}

func (db *ObjectDatabase) pathFor(id objectid.ID) string {
	dir, file := id.FanOut()
	return filepath.Join(db.dir, dir, file)
}

// Write computes obj's canonical bytes and content id, and stores them at
// the fan-out path. If an object with that id already exists, Write is a
// no-op and returns the existing id (I7).
func (db *ObjectDatabase) Write(ctx context.Context, tag types.Tag, obj interface{}) (objectid.ID, error) {
	ctx, span := tracer.Start(ctx, "odb.Write", trace.WithAttributes(attribute.String("telos.tag", string(tag))))
	defer span.End()
	start := time.Now()

	bs, err := codec.Canonicalize(string(tag), obj)
	if err != nil {
		span.RecordError(err)
		return objectid.ID{}, err
	}
	id := objectid.Hash(bs)
	span.SetAttributes(attribute.String("telos.content_id", id.String()))

	path := db.pathFor(id)
	if _, statErr := os.Stat(path); statErr == nil {
		db.logger.Debug("object already present, write is a no-op", slog.String("content_id", id.String()))
		metrics.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("telos.tag", string(tag)), attribute.Bool("telos.idempotent", true)))
		return id, nil
	}

	fanOutDir := filepath.Dir(path)
	if err := os.MkdirAll(fanOutDir, 0o755); err != nil {
		span.RecordError(err)
		return objectid.ID{}, telerr.Wrap("create fan-out directory", telerr.ErrIo)
	}

	writeErr := db.atomicWriteWithRetry(ctx, fanOutDir, path, bs)
	if writeErr != nil {
		span.RecordError(writeErr)
		return objectid.ID{}, writeErr
	}

	metrics.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("telos.tag", string(tag)), attribute.Bool("telos.idempotent", false)))
	metrics.writeLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attribute.String("telos.tag", string(tag))))
	db.logger.Info("wrote object", slog.String("content_id", id.String()), slog.String("tag", string(tag)))
	return id, nil
}

// atomicWriteWithRetry writes bytes to a temp file in dir and renames it
// onto target, retrying the rename under backoff only for transient
// EINTR/EAGAIN conditions. Any other failure is permanent.
func (db *ObjectDatabase) atomicWriteWithRetry(ctx context.Context, dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return telerr.Wrap("create temp file", telerr.ErrIo)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return telerr.Wrap("write temp file", telerr.ErrIo)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return telerr.Wrap("sync temp file", telerr.ErrIo)
	}
	if err := tmp.Close(); err != nil {
		return telerr.Wrap("close temp file", telerr.ErrIo)
	}

	attempts := 0
	operation := func() error {
		attempts++
		err := os.Rename(tmpPath, target)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
			return err
		}
		return backoff.Permanent(err)
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return telerr.Wrap("rename temp file onto target", telerr.ErrIo)
	}
	if attempts > 1 {
		metrics.writes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("telos.retried", true)))
	}
	cleanupTmp = false
	return nil
}

// Read loads the object stored at id, verifies its content hash, and
// decodes it into its typed variant.
func (db *ObjectDatabase) Read(ctx context.Context, id objectid.ID) (types.Tag, interface{}, error) {
	_, span := tracer.Start(ctx, "odb.Read", trace.WithAttributes(attribute.String("telos.content_id", id.String())))
	defer span.End()
	start := time.Now()

	path := db.pathFor(id)
	bs, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, telerr.Wrap(id.String(), telerr.ErrObjectNotFound)
		}
		span.RecordError(err)
		return "", nil, telerr.Wrap("read object file", telerr.ErrIo)
	}

	actual := objectid.Hash(bs)
	if actual.String() != id.String() {
		integrityErr := &telerr.IntegrityError{Expected: id.String(), Actual: actual.String()}
		span.RecordError(integrityErr)
		return "", nil, integrityErr
	}

	tagStr, body, err := codec.SplitTag(bs)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}
	tag := types.Tag(tagStr)
	value, err := types.Decode(tag, body)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}

	metrics.reads.Add(ctx, 1, metric.WithAttributes(attribute.String("telos.tag", tagStr)))
	metrics.readLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attribute.String("telos.tag", tagStr)))
	return tag, value, nil
}

// Exists reports whether an object with id is stored.
func (db *ObjectDatabase) Exists(id objectid.ID) bool {
	_, err := os.Stat(db.pathFor(id))
	return err == nil
}

// Entry is one (id, tag, value) triple yielded by IterAll.
type Entry struct {
	ID    objectid.ID
	Tag   types.Tag
	Value interface{}
}

// IterAll walks every fan-out directory and every file within it, parsing
// each name back into a ContentId and reading it. Entries that cannot be
// parsed or fail integrity verification are skipped silently: the ODB
// tolerates partially-written or foreign files under its root rather than
// failing a full scan over one bad entry.
func (db *ObjectDatabase) IterAll(ctx context.Context) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "odb.IterAll")
	defer span.End()

	fanOutDirs, err := os.ReadDir(db.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, telerr.Wrap("read objects directory", telerr.ErrIo)
	}

	var entries []Entry
	for _, fd := range fanOutDirs {
		if !fd.IsDir() || len(fd.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(db.dir, fd.Name()))
		if err != nil {
			db.logger.Warn("skipping unreadable fan-out directory", slog.String("dir", fd.Name()))
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			hex := fd.Name() + f.Name()
			id, err := objectid.Parse(hex)
			if err != nil {
				db.logger.Warn("skipping malformed object file name", slog.String("name", hex))
				continue
			}
			tag, value, err := db.Read(ctx, id)
			if err != nil {
				db.logger.Warn("skipping unreadable object", slog.String("content_id", id.String()), slog.Any("error", err))
				continue
			}
			entries = append(entries, Entry{ID: id, Tag: tag, Value: value})
		}
	}
	return entries, nil
}

// ResolvePrefix resolves a hex prefix of at least 4 characters to the
// unique content id it identifies.
func (db *ObjectDatabase) ResolvePrefix(prefix string) (objectid.ID, error) {
	if len(prefix) < minPrefixLen {
		return objectid.ID{}, telerr.Wrap(fmt.Sprintf("prefix %q shorter than %d characters", prefix, minPrefixLen), telerr.ErrObjectNotFound)
	}
	lower := prefix
	fanOut := lower
	rest := ""
	if len(lower) >= 2 {
		fanOut, rest = lower[:2], lower[2:]
	}

	files, err := os.ReadDir(filepath.Join(db.dir, fanOut))
	if err != nil {
		if os.IsNotExist(err) {
			return objectid.ID{}, telerr.Wrap(prefix, telerr.ErrObjectNotFound)
		}
		return objectid.ID{}, telerr.Wrap("read fan-out directory", telerr.ErrIo)
	}

	var matches []string
	for _, f := range files {
		if !f.IsDir() && len(f.Name()) > 0 && hasPrefix(f.Name(), rest) {
			matches = append(matches, fanOut+f.Name())
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return objectid.ID{}, telerr.Wrap(prefix, telerr.ErrObjectNotFound)
	case 1:
		return objectid.Parse(matches[0])
	default:
		return objectid.ID{}, &telerr.AmbiguousPrefixError{Prefix: prefix, Count: len(matches)}
	}
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}
