// Package viewsync keeps the in-memory lists behind the screens consistent
// with server truth. Every mutation follows the same contract: issue the
// request, and only on success replace the entity in every registered list
// by id. A failed request leaves all lists exactly as they were, and no
// reader ever observes a half-applied update.
package viewsync

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// List is a concurrency-safe entity list keyed by numeric id.
type List[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) int64
}

func NewList[T any](id func(T) int64) *List[T] {
	return &List[T]{id: id}
}

// Replace swaps in a fresh server response.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make([]T, len(items))
	copy(l.items, items)
}

// Items returns a copy of the current list.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Get finds an entity by id.
func (l *List[T]) Get(id int64) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.items {
		if l.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the current item count.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Apply replaces the entity with the same id. An entity not present in the
// list is a silent no-op, not an error.
func (l *List[T]) Apply(updated T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.id(updated)
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items[i] = updated
			return
		}
	}
}

// Remove drops the entity with the given id, if present.
func (l *List[T]) Remove(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Clear empties the list; used when a cached list is invalidated and must be
// refetched.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// Synchronizer runs mutations and reconciles their results into every
// registered list.
type Synchronizer[T any] struct {
	lists  []*List[T]
	logger *logrus.Logger
}

func NewSynchronizer[T any](logger *logrus.Logger, lists ...*List[T]) *Synchronizer[T] {
	return &Synchronizer[T]{lists: lists, logger: logger}
}

// Mutate issues the request and, on success, applies the returned entity to
// every list. On failure nothing is touched and the error is returned to the
// caller unchanged.
func (s *Synchronizer[T]) Mutate(ctx context.Context, mutate func(context.Context) (T, error)) (T, error) {
	updated, err := mutate(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	for _, l := range s.lists {
		l.Apply(updated)
	}
	return updated, nil
}

// MutateDelete issues a deletion and, on success, removes the entity from
// every list.
func (s *Synchronizer[T]) MutateDelete(ctx context.Context, id int64, del func(context.Context) error) error {
	if err := del(ctx); err != nil {
		return err
	}

	for _, l := range s.lists {
		l.Remove(id)
	}
	s.logger.WithField("id", id).Debug("Entity removed from cached lists")
	return nil
}
