// Package cache provides an in-process read cache for terminal tasks, backed
// by dgraph-io/ristretto. Only terminal tasks are cached: completed and failed
// tasks are immutable, so cached copies can never go stale.
package cache

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
)

// taskCost is the accounting cost of one cached task. Tasks carry only
// metadata (the image bytes live in the variation store), so a flat per-entry
// cost keeps the arithmetic honest enough.
const taskCost = 1

// TaskCache caches immutable terminal tasks by id.
type TaskCache struct {
	c *ristretto.Cache[string, *domain.Task]
}

// NewTaskCache creates a TaskCache holding at most maxTasks entries.
func NewTaskCache(maxTasks int64) (*TaskCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *domain.Task]{
		NumCounters: maxTasks * 10, // ~10x expected items
		MaxCost:     maxTasks,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &TaskCache{c: c}, nil
}

// Get returns the cached task for the id, if present.
func (tc *TaskCache) Get(_ context.Context, id uuid.UUID) (*domain.Task, bool) {
	return tc.c.Get(id.String())
}

// Put stores the task if it is terminal. Non-terminal tasks are ignored since
// their state is still in motion.
func (tc *TaskCache) Put(_ context.Context, t *domain.Task) {
	if t == nil || !t.IsTerminal() {
		return
	}
	tc.c.Set(t.ID.String(), t, taskCost)
}

// Close shuts down the cache and releases its resources.
func (tc *TaskCache) Close() {
	tc.c.Close()
}
