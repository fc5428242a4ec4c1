package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out one lock per record id. A lock is a channel with a
// single slot so that waiting can be abandoned when the context ends.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uuid.UUID]chan struct{})}
}

func (t *lockTable) get(id uuid.UUID) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		t.locks[id] = l
	}
	return l
}

func (t *lockTable) acquire(ctx context.Context, id uuid.UUID) error {
	select {
	case t.get(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(id uuid.UUID) {
	<-t.get(id)
}

// sortedUnique returns ids without duplicates in byte order, the order locks are taken in
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
