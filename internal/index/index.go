// Package index implements the three persistent inverted indexes (impact
// tag, file path, symbol) used to accelerate constraint and code-binding
// lookups, plus full-rebuild-from-scan and optional external-change
// notification.
package index

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/odb"
	"github.com/telos-vcs/telos/internal/telerr"
	"github.com/telos-vcs/telos/internal/types"
)

const indexVersion = 2

// defaultLockRetryInterval is how often RebuildAll retries the advisory
// rebuild lock while waiting for a concurrent rebuild to finish.
const defaultLockRetryInterval = 50 * time.Millisecond

// Entry is one value stored against a key in any of the three indexes.
type Entry struct {
	ID          objectid.ID `json:"id"`
	ObjectType  types.Tag   `json:"object_type"`
	Symbol      *string     `json:"symbol,omitempty"`
	BindingType *types.BindingType `json:"binding_type,omitempty"`
}

type indexFile struct {
	Version int                `json:"version"`
	Entries map[string][]Entry `json:"entries"`
}

func newIndexFile() indexFile {
	return indexFile{Version: indexVersion, Entries: make(map[string][]Entry)}
}

// IndexStore manages the impact/codepath/symbols JSON documents under dir
// (typically "<repo>/.telos/indexes").
type IndexStore struct {
	dir    string
	logger *slog.Logger
}

// New returns an IndexStore rooted at dir. If logger is nil,
// slog.Default() is used.
func New(dir string, logger *slog.Logger) *IndexStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStore{dir: dir, logger: logger}
}

func (s *IndexStore) path(name string) string { return filepath.Join(s.dir, name+".json") }

// load reads name's index file, resetting silently to an empty index on any
// read or parse failure: indexes are a cache, never a source of truth.
func (s *IndexStore) load(name string) indexFile {
	bs, err := os.ReadFile(s.path(name))
	if err != nil {
		return newIndexFile()
	}
	var f indexFile
	if err := json.Unmarshal(bs, &f); err != nil {
		s.logger.Warn("resetting unreadable index to empty", slog.String("index", name))
		return newIndexFile()
	}
	if f.Entries == nil {
		f.Entries = make(map[string][]Entry)
	}
	return f
}

func (s *IndexStore) save(name string, f indexFile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return telerr.Wrap("create indexes directory", telerr.ErrIo)
	}
	bs, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return telerr.Wrap("encode index", telerr.ErrSerialization)
	}
	path := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return telerr.Wrap("create temp index file", telerr.ErrIo)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(bs); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return telerr.Wrap("write temp index file", telerr.ErrIo)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return telerr.Wrap("close temp index file", telerr.ErrIo)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return telerr.Wrap("rename temp index file onto target", telerr.ErrIo)
	}
	return nil
}

// UpdateForObject appends id's entries to whichever of the three indexes
// its tag and fields populate. intent/constraint contribute to the impact
// index for each impact tag; code_binding contributes to codepath always
// and symbols when a symbol is present. Other tags are ignored.
func (s *IndexStore) UpdateForObject(id objectid.ID, tag types.Tag, value interface{}) error {
	switch tag {
	case types.TagIntent:
		v := value.(types.Intent)
		return s.appendImpacts(id, tag, v.Impacts)
	case types.TagConstraint:
		v := value.(types.Constraint)
		return s.appendImpacts(id, tag, v.Impacts)
	case types.TagCodeBinding:
		v := value.(types.CodeBinding)
		f := s.load("codepath")
		f.Entries[v.Path] = append(f.Entries[v.Path], Entry{ID: id, ObjectType: tag, Symbol: v.Symbol, BindingType: &v.BindingType})
		if err := s.save("codepath", f); err != nil {
			return err
		}
		if v.Symbol != nil {
			sym := s.load("symbols")
			sym.Entries[*v.Symbol] = append(sym.Entries[*v.Symbol], Entry{ID: id, ObjectType: tag, Symbol: v.Symbol, BindingType: &v.BindingType})
			return s.save("symbols", sym)
		}
		return nil
	default:
		return nil
	}
}

func (s *IndexStore) appendImpacts(id objectid.ID, tag types.Tag, impacts []string) error {
	if len(impacts) == 0 {
		return nil
	}
	f := s.load("impact")
	for _, impact := range impacts {
		f.Entries[impact] = append(f.Entries[impact], Entry{ID: id, ObjectType: tag})
	}
	return s.save("impact", f)
}

// RebuildAll drops all three index files and repopulates them from a full
// ODB scan, under an advisory cross-process lock so concurrent rebuilds
// serialize instead of interleaving partial writes across the three files.
func (s *IndexStore) RebuildAll(ctx context.Context, db *odb.ObjectDatabase) (impactCount, pathCount, symCount int, err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, 0, 0, telerr.Wrap("create indexes directory", telerr.ErrIo)
	}
	fl := flock.New(filepath.Join(s.dir, ".rebuild.lock"))
	locked, lockErr := fl.TryLockContext(ctx, defaultLockRetryInterval)
	if lockErr != nil || !locked {
		return 0, 0, 0, telerr.Wrap("acquire index rebuild lock", telerr.ErrLockConflict)
	}
	defer fl.Unlock()

	impact := newIndexFile()
	codepath := newIndexFile()
	symbols := newIndexFile()

	entries, err := db.IterAll(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, e := range entries {
		switch e.Tag {
		case types.TagIntent:
			v := e.Value.(types.Intent)
			for _, impactTag := range v.Impacts {
				impact.Entries[impactTag] = append(impact.Entries[impactTag], Entry{ID: e.ID, ObjectType: e.Tag})
			}
		case types.TagConstraint:
			v := e.Value.(types.Constraint)
			for _, impactTag := range v.Impacts {
				impact.Entries[impactTag] = append(impact.Entries[impactTag], Entry{ID: e.ID, ObjectType: e.Tag})
			}
		case types.TagCodeBinding:
			v := e.Value.(types.CodeBinding)
			codepath.Entries[v.Path] = append(codepath.Entries[v.Path], Entry{ID: e.ID, ObjectType: e.Tag, Symbol: v.Symbol, BindingType: &v.BindingType})
			if v.Symbol != nil {
				symbols.Entries[*v.Symbol] = append(symbols.Entries[*v.Symbol], Entry{ID: e.ID, ObjectType: e.Tag, Symbol: v.Symbol, BindingType: &v.BindingType})
			}
		}
	}

	if err := s.save("impact", impact); err != nil {
		return 0, 0, 0, err
	}
	if err := s.save("codepath", codepath); err != nil {
		return 0, 0, 0, err
	}
	if err := s.save("symbols", symbols); err != nil {
		return 0, 0, 0, err
	}
	s.logger.Info("rebuilt indexes",
		slog.Int("impact_keys", len(impact.Entries)),
		slog.Int("path_keys", len(codepath.Entries)),
		slog.Int("symbol_keys", len(symbols.Entries)))
	return len(impact.Entries), len(codepath.Entries), len(symbols.Entries), nil
}

// ByImpact returns a copy of the entries recorded against tag, or nil.
func (s *IndexStore) ByImpact(tag string) []Entry { return s.load("impact").Entries[tag] }

// ByPath returns a copy of the entries recorded against path, or nil.
func (s *IndexStore) ByPath(path string) []Entry { return s.load("codepath").Entries[path] }

// BySymbol returns a copy of the entries recorded against name, or nil.
func (s *IndexStore) BySymbol(name string) []Entry { return s.load("symbols").Entries[name] }

// Watch starts a goroutine that calls onChange with the base name of any
// file under dir that is created or written (the temp files save renames
// into place included), until ctx is cancelled. It is purely an
// optimization for long-lived readers; correctness never depends on a
// watch event arriving.
func (s *IndexStore) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return telerr.Wrap("create filesystem watcher", telerr.ErrIo)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return telerr.Wrap("watch indexes directory", telerr.ErrIo)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange(filepath.Base(event.Name))
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("index watcher error", slog.Any("error", werr))
			}
		}
	}()
	return nil
}
