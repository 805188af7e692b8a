// Package lockfile implements scoped exclusive acquisition of a
// "<target>.lock" sibling file, committed by atomic rename onto the target.
// It is advisory: exclusivity is enforced by O_EXCL within one filesystem,
// not by any cross-host coordination.
package lockfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/telos-vcs/telos/internal/telerr"
)

// Lockfile represents an acquired, uncommitted lock on target.
type Lockfile struct {
	target   string
	lockPath string
	file     *os.File
	committed bool
}

// LockPath computes the sibling lock file name for target: the target's
// extension (if any) gains a ".lock" suffix, or the bare file gets a
// ".lock" extension appended when it has none.
func LockPath(target string) string {
	ext := filepath.Ext(target)
	if ext == "" {
		return target + ".lock"
	}
	return strings.TrimSuffix(target, ext) + ext + ".lock"
}

// Acquire opens the exclusive lock file for target. It fails with
// telerr.ErrLockConflict if the lock is already held.
func Acquire(target string) (*Lockfile, error) {
	lockPath := LockPath(target)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, telerr.Wrap(lockPath, telerr.ErrLockConflict)
		}
		return nil, telerr.Wrap("open lock file", telerr.ErrIo)
	}
	return &Lockfile{target: target, lockPath: lockPath, file: f}, nil
}

// AcquireBlocking retries Acquire under the default exponential backoff
// until it succeeds, ctx is cancelled, or the backoff's default 15-minute
// elapsed-time limit passes. It never changes the underlying exclusivity
// semantics, only the caller's patience.
func AcquireBlocking(ctx context.Context, target string) (*Lockfile, error) {
	var lf *Lockfile
	operation := func() error {
		acquired, err := Acquire(target)
		if err != nil {
			if errors.Is(err, telerr.ErrLockConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		lf = acquired
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return lf, nil
}

// WriteAll writes bytes to the held lock file. It may be called multiple
// times before Commit; each call overwrites from the start of the file.
func (l *Lockfile) WriteAll(data []byte) error {
	if l.committed {
		return telerr.Wrap("write after commit", telerr.ErrIo)
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return telerr.Wrap("seek lock file", telerr.ErrIo)
	}
	if err := l.file.Truncate(0); err != nil {
		return telerr.Wrap("truncate lock file", telerr.ErrIo)
	}
	if _, err := l.file.Write(data); err != nil {
		return telerr.Wrap("write lock file", telerr.ErrIo)
	}
	return nil
}

// Commit flushes and closes the lock file, then atomically renames it onto
// target, releasing the lock and publishing its contents in one step.
func (l *Lockfile) Commit() error {
	if l.committed {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return telerr.Wrap("sync lock file", telerr.ErrIo)
	}
	if err := l.file.Close(); err != nil {
		return telerr.Wrap("close lock file", telerr.ErrIo)
	}
	if err := os.Rename(l.lockPath, l.target); err != nil {
		return telerr.Wrap("rename lock file onto target", telerr.ErrIo)
	}
	l.committed = true
	return nil
}

// Close releases the lock without publishing its contents. If Commit was
// already called this is a no-op. Safe to call via defer unconditionally.
func (l *Lockfile) Close() error {
	if l.committed {
		return nil
	}
	_ = l.file.Close()
	l.committed = true
	return os.Remove(l.lockPath)
}
