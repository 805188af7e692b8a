// Package refstore implements HEAD and named stream references: the
// mutable, non-content-addressed branch-pointer layer.
package refstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/telos-vcs/telos/internal/lockfile"
	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/telerr"
)

const headPrefix = "ref: refs/streams/"

// StreamRef is the mutable, one-per-file representation of a stream's
// current tip.
type StreamRef struct {
	Name        string       `json:"name"`
	Tip         *objectid.ID `json:"tip,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Description *string      `json:"description,omitempty"`
}

// RefStore manages HEAD and refs/streams/<name> under root.
type RefStore struct {
	root   string
	logger *slog.Logger
}

// New returns a RefStore rooted at root (typically "<repo>/.telos"). If
// logger is nil, slog.Default() is used.
func New(root string, logger *slog.Logger) *RefStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefStore{root: root, logger: logger}
}

func (rs *RefStore) headPath() string          { return filepath.Join(rs.root, "HEAD") }
func (rs *RefStore) streamsDir() string        { return filepath.Join(rs.root, "refs", "streams") }
func (rs *RefStore) streamPath(name string) string {
	return filepath.Join(rs.streamsDir(), filepath.FromSlash(name))
}

// ValidateStreamName enforces I6: non-empty, no NUL, no leading '.' per
// segment, no "..", no empty segments.
func ValidateStreamName(name string) error {
	if name == "" {
		return &telerr.InvalidStreamNameError{Name: name, Reason: "empty name"}
	}
	if strings.ContainsRune(name, 0) {
		return &telerr.InvalidStreamNameError{Name: name, Reason: "contains NUL byte"}
	}
	if strings.Contains(name, "..") {
		return &telerr.InvalidStreamNameError{Name: name, Reason: "contains \"..\""}
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" {
			return &telerr.InvalidStreamNameError{Name: name, Reason: "empty path segment"}
		}
		if strings.HasPrefix(segment, ".") {
			return &telerr.InvalidStreamNameError{Name: name, Reason: "segment starts with '.'"}
		}
	}
	return nil
}

// ReadHead reads the HEAD file and returns the stream name it points at.
func (rs *RefStore) ReadHead() (string, error) {
	bs, err := os.ReadFile(rs.headPath())
	if err != nil {
		return "", telerr.Wrap("read HEAD", telerr.ErrInvalidHead)
	}
	content := strings.TrimRight(string(bs), " \t\r\n")
	if !strings.HasPrefix(content, headPrefix) {
		return "", telerr.Wrap("malformed HEAD contents", telerr.ErrInvalidHead)
	}
	return strings.TrimPrefix(content, headPrefix), nil
}

// SetHead points HEAD at an existing stream.
func (rs *RefStore) SetHead(name string) error {
	if err := ValidateStreamName(name); err != nil {
		return err
	}
	if _, err := os.Stat(rs.streamPath(name)); err != nil {
		return telerr.Wrap(name, telerr.ErrStreamNotFound)
	}
	lf, err := lockfile.Acquire(rs.headPath())
	if err != nil {
		return err
	}
	defer lf.Close()

	if err := lf.WriteAll([]byte(headPrefix + name + "\n")); err != nil {
		return err
	}
	if err := lf.Commit(); err != nil {
		return err
	}
	rs.logger.Info("moved HEAD", slog.String("stream", name))
	return nil
}

// ReadStream loads the stream ref stored at name.
func (rs *RefStore) ReadStream(name string) (StreamRef, error) {
	bs, err := os.ReadFile(rs.streamPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return StreamRef{}, telerr.Wrap(name, telerr.ErrStreamNotFound)
		}
		return StreamRef{}, telerr.Wrap("read stream file", telerr.ErrIo)
	}
	var ref StreamRef
	if err := json.Unmarshal(bs, &ref); err != nil {
		return StreamRef{}, telerr.Wrap("decode stream file", telerr.ErrSerialization)
	}
	return ref, nil
}

// WriteStream atomically overwrites an existing stream ref.
func (rs *RefStore) WriteStream(ref StreamRef) error {
	return rs.writeStreamFile(ref, false)
}

// CreateStream writes a new stream ref, failing with telerr.ErrStreamExists
// if one is already present.
func (rs *RefStore) CreateStream(ref StreamRef) error {
	if err := ValidateStreamName(ref.Name); err != nil {
		return err
	}
	if _, err := os.Stat(rs.streamPath(ref.Name)); err == nil {
		return telerr.Wrap(ref.Name, telerr.ErrStreamExists)
	}
	return rs.writeStreamFile(ref, true)
}

func (rs *RefStore) writeStreamFile(ref StreamRef, isCreate bool) error {
	path := rs.streamPath(ref.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return telerr.Wrap("create stream directory", telerr.ErrIo)
	}
	bs, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return telerr.Wrap("encode stream ref", telerr.ErrSerialization)
	}

	lf, err := lockfile.Acquire(path)
	if err != nil {
		return err
	}
	defer lf.Close()
	if err := lf.WriteAll(bs); err != nil {
		return err
	}
	if err := lf.Commit(); err != nil {
		return err
	}
	action := "updated"
	if isCreate {
		action = "created"
	}
	rs.logger.Info(action+" stream", slog.String("stream", ref.Name))
	return nil
}

// DeleteStream removes name's stream file, then prunes any now-empty parent
// directories up to refs/streams/. It refuses to delete the stream HEAD
// currently points at (I4).
func (rs *RefStore) DeleteStream(name string) error {
	head, err := rs.ReadHead()
	if err != nil {
		return err
	}
	if head == name {
		return telerr.Wrap("cannot delete current HEAD stream "+name, telerr.ErrStreamNotFound)
	}

	path := rs.streamPath(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return telerr.Wrap(name, telerr.ErrStreamNotFound)
		}
		return telerr.Wrap("remove stream file", telerr.ErrIo)
	}

	dir := filepath.Dir(path)
	streamsRoot := rs.streamsDir()
	for dir != streamsRoot {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	rs.logger.Info("deleted stream", slog.String("stream", name))
	return nil
}

// ListStreams walks refs/streams/ recursively and returns every stream name
// found, sorted byte-ascending.
func (rs *RefStore) ListStreams() ([]string, error) {
	root := rs.streamsDir()
	var names []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, telerr.Wrap("walk streams directory", telerr.ErrIo)
	}
	sort.Strings(names)
	return names, nil
}

// CurrentStream reads the stream HEAD currently points at.
func (rs *RefStore) CurrentStream() (StreamRef, error) {
	head, err := rs.ReadHead()
	if err != nil {
		return StreamRef{}, err
	}
	return rs.ReadStream(head)
}

// UpdateCurrentTip advances the current stream's tip to id.
func (rs *RefStore) UpdateCurrentTip(id objectid.ID) error {
	head, err := rs.ReadHead()
	if err != nil {
		return err
	}
	ref, err := rs.ReadStream(head)
	if err != nil {
		return err
	}
	ref.Tip = &id
	return rs.WriteStream(ref)
}
