// Package repository composes the object database, reference store, and
// index store into the lifecycle and typed-creation operations callers use:
// init/open/discover, the per-variant Create* methods, read_object
// resolution, and the intent DAG walker.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/telos-vcs/telos/internal/index"
	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/odb"
	"github.com/telos-vcs/telos/internal/refstore"
	"github.com/telos-vcs/telos/internal/telerr"
	"github.com/telos-vcs/telos/internal/types"
)

const dotDir = ".telos"

type config struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the top-level handle over one on-disk .telos tree.
type Repository struct {
	root   string
	dbDir  string
	ODB    *odb.ObjectDatabase
	Refs   *refstore.RefStore
	Index  *index.IndexStore
	logger *slog.Logger
}

func dotPath(root string) string { return filepath.Join(root, dotDir) }

// Init creates a new .telos tree under root. It fails with
// telerr.ErrRepositoryExists if one already exists.
func Init(root string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := dotPath(root)
	if _, err := os.Stat(dir); err == nil {
		return nil, telerr.Wrap(dir, telerr.ErrRepositoryExists)
	}

	for _, sub := range []string{"objects", filepath.Join("refs", "streams"), filepath.Join("logs", "streams"), "indexes"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, telerr.Wrap("create "+sub, telerr.ErrIo)
		}
	}

	cfg := config{Version: 1, CreatedAt: time.Now().UTC()}
	cfgBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, telerr.Wrap("encode config", telerr.ErrSerialization)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), cfgBytes, 0o644); err != nil {
		return nil, telerr.Wrap("write config.json", telerr.ErrIo)
	}

	repo := newRepository(root, logger)

	description := "Default intent stream"
	if err := repo.Refs.CreateStream(refstore.StreamRef{
		Name:        "main",
		CreatedAt:   time.Now().UTC(),
		Description: &description,
	}); err != nil {
		return nil, err
	}
	if err := repo.Refs.SetHead("main"); err != nil {
		return nil, err
	}

	logger.Info("initialized repository", slog.String("root", root))
	return repo, nil
}

// Open opens an existing .telos tree under root.
func Open(root string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(dotPath(root)); err != nil {
		return nil, telerr.Wrap(root, telerr.ErrRepositoryNotFound)
	}
	return newRepository(root, logger), nil
}

// Discover walks ancestors of start (inclusive) looking for a directory
// whose child is .telos, opening the first one found.
func Discover(start string, logger *slog.Logger) (*Repository, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, telerr.Wrap("resolve absolute path", telerr.ErrIo)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, dotDir)); err == nil {
			return Open(dir, logger)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, telerr.Wrap(start, telerr.ErrRepositoryNotFound)
		}
		dir = parent
	}
}

func newRepository(root string, logger *slog.Logger) *Repository {
	dir := dotPath(root)
	return &Repository{
		root:   root,
		dbDir:  dir,
		ODB:    odb.New(filepath.Join(dir, "objects"), logger),
		Refs:   refstore.New(dir, logger),
		Index:  index.New(filepath.Join(dir, "indexes"), logger),
		logger: logger,
	}
}

// requireTag reads id and returns telerr.ErrObjectNotFound unchanged if it
// does not exist; if it exists but carries a tag other than want, it
// returns an InvalidReferenceError. This distinction (missing vs.
// wrong-typed) matters: see DESIGN.md.
func (r *Repository) requireTag(ctx context.Context, id objectid.ID, want types.Tag) error {
	tag, _, err := r.ODB.Read(ctx, id)
	if err != nil {
		return err
	}
	if tag != want {
		return &telerr.InvalidReferenceError{Msg: fmt.Sprintf("%s is a %s, not a %s", id.Short(), tag, want)}
	}
	return nil
}

// CreateIntent validates that every parent resolves to an existing intent,
// writes the object, updates the secondary indexes, and advances the
// current stream's tip.
func (r *Repository) CreateIntent(ctx context.Context, intent types.Intent) (objectid.ID, error) {
	for _, parent := range intent.Parents {
		if err := r.requireTag(ctx, parent, types.TagIntent); err != nil {
			return objectid.ID{}, err
		}
	}
	id, err := r.ODB.Write(ctx, types.TagIntent, intent)
	if err != nil {
		return objectid.ID{}, err
	}
	if err := r.Index.UpdateForObject(id, types.TagIntent, intent); err != nil {
		return objectid.ID{}, err
	}
	if err := r.Refs.UpdateCurrentTip(id); err != nil {
		return objectid.ID{}, err
	}
	return id, nil
}

// CreateDecision validates that record.IntentID resolves to an existing
// intent (I5), then writes and indexes the decision.
func (r *Repository) CreateDecision(ctx context.Context, record types.DecisionRecord) (objectid.ID, error) {
	if err := r.requireTag(ctx, record.IntentID, types.TagIntent); err != nil {
		return objectid.ID{}, err
	}
	id, err := r.ODB.Write(ctx, types.TagDecisionRecord, record)
	if err != nil {
		return objectid.ID{}, err
	}
	if err := r.Index.UpdateForObject(id, types.TagDecisionRecord, record); err != nil {
		return objectid.ID{}, err
	}
	return id, nil
}

// CreateConstraint writes and indexes a constraint without validating its
// cross-references (forward-references are allowed by design).
func (r *Repository) CreateConstraint(ctx context.Context, c types.Constraint) (objectid.ID, error) {
	return r.writeAndIndex(ctx, types.TagConstraint, c)
}

// CreateCodeBinding writes and indexes a code binding without validating
// its cross-references.
func (r *Repository) CreateCodeBinding(ctx context.Context, b types.CodeBinding) (objectid.ID, error) {
	return r.writeAndIndex(ctx, types.TagCodeBinding, b)
}

// CreateAgentOperation writes and indexes an agent operation without
// validating its cross-references.
func (r *Repository) CreateAgentOperation(ctx context.Context, op types.AgentOperation) (objectid.ID, error) {
	return r.writeAndIndex(ctx, types.TagAgentOperation, op)
}

// CreateChangeSet writes and indexes a change set without validating its
// cross-references.
func (r *Repository) CreateChangeSet(ctx context.Context, cs types.ChangeSet) (objectid.ID, error) {
	return r.writeAndIndex(ctx, types.TagChangeSet, cs)
}

// CreateBehaviorDiff writes and indexes a behavior diff without validating
// its cross-references.
func (r *Repository) CreateBehaviorDiff(ctx context.Context, bd types.BehaviorDiff) (objectid.ID, error) {
	return r.writeAndIndex(ctx, types.TagBehaviorDiff, bd)
}

func (r *Repository) writeAndIndex(ctx context.Context, tag types.Tag, value interface{}) (objectid.ID, error) {
	id, err := r.ODB.Write(ctx, tag, value)
	if err != nil {
		return objectid.ID{}, err
	}
	if err := r.Index.UpdateForObject(id, tag, value); err != nil {
		return objectid.ID{}, err
	}
	return id, nil
}

// ReadObject resolves s either as an exact 64-hex content id or, failing
// that, as a hex prefix, and reads the resolved object.
func (r *Repository) ReadObject(ctx context.Context, s string) (objectid.ID, types.Tag, interface{}, error) {
	id, err := objectid.Parse(s)
	if err != nil {
		id, err = r.ODB.ResolvePrefix(s)
		if err != nil {
			return objectid.ID{}, "", nil, err
		}
	}
	tag, value, err := r.ODB.Read(ctx, id)
	if err != nil {
		return objectid.ID{}, "", nil, err
	}
	return id, tag, value, nil
}
