package repository

import (
	"context"

	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/types"
)

// IntentWalker performs a breadth-first traversal of an intent's ancestors
// over the parents edges. Ids are marked visited at enqueue time, so each
// intent is yielded at most once; non-intent objects reachable through a
// stray parent link are skipped without erroring. The walk is restartable
// by constructing a new IntentWalker.
type IntentWalker struct {
	repo    *Repository
	queue   []objectid.ID
	visited map[string]struct{}
}

// WalkIntents returns a walker seeded with start, which is yielded first if
// it resolves to an intent.
func (r *Repository) WalkIntents(start objectid.ID) *IntentWalker {
	w := &IntentWalker{
		repo:    r,
		queue:   []objectid.ID{start},
		visited: map[string]struct{}{start.String(): {}},
	}
	return w
}

// Next advances the walker and returns the next (id, intent) pair. ok is
// false once the walk is exhausted. A non-existent parent propagates its
// error and ends the walk.
func (w *IntentWalker) Next(ctx context.Context) (id objectid.ID, intent types.Intent, ok bool, err error) {
	for len(w.queue) > 0 {
		next := w.queue[0]
		w.queue = w.queue[1:]

		tag, value, readErr := w.repo.ODB.Read(ctx, next)
		if readErr != nil {
			w.queue = nil
			return objectid.ID{}, types.Intent{}, false, readErr
		}
		if tag != types.TagIntent {
			continue
		}
		iv := value.(types.Intent)
		for _, parent := range iv.Parents {
			if _, seen := w.visited[parent.String()]; !seen {
				w.visited[parent.String()] = struct{}{}
				w.queue = append(w.queue, parent)
			}
		}
		return next, iv, true, nil
	}
	return objectid.ID{}, types.Intent{}, false, nil
}

// Collect drains the walker into a slice of (id, intent) pairs. Intended
// for tests and small DAGs; long-lived callers should prefer Next.
func (w *IntentWalker) Collect(ctx context.Context) ([]objectid.ID, []types.Intent, error) {
	var ids []objectid.ID
	var intents []types.Intent
	for {
		id, intent, ok, err := w.Next(ctx)
		if err != nil {
			return ids, intents, err
		}
		if !ok {
			return ids, intents, nil
		}
		ids = append(ids, id)
		intents = append(intents, intent)
	}
}
