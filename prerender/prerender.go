// Package prerender keeps generated page data and regenerates it in the background once it is stale.
package prerender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type GenerateFunc[T any] func(ctx context.Context, key string) (T, error)

// Observer is told about every generation.
type Observer interface {
	ObserveGeneration(page string, err error)
}

type entry[T any] struct {
	value       T
	generatedAt time.Time
}

// Cache serves generated values, stale ones included, and regenerates a stale key at most once at a time.
type Cache[T any] struct {
	name       string
	revalidate time.Duration
	generate   GenerateFunc[T]
	observer   Observer
	now        func() time.Time
	dropOn     func(err error) bool

	mu           sync.RWMutex
	entries      map[string]entry[T]
	revalidating map[string]bool
	group        singleflight.Group
	wg           sync.WaitGroup
}

type Option[T any] func(c *Cache[T])

func WithObserver[T any](observer Observer) Option[T] {
	return func(c *Cache[T]) {
		c.observer = observer
	}
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

// WithDropOn drops a stale key instead of serving it when a regeneration error matches drop,
// so the next Get generates it again and sees the error.
func WithDropOn[T any](drop func(err error) bool) Option[T] {
	return func(c *Cache[T]) {
		c.dropOn = drop
	}
}

func New[T any](name string, revalidate time.Duration, generate GenerateFunc[T], opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		name:       name,
		revalidate: revalidate,
		generate:   generate,
		observer:   nil,
		now:          time.Now,
		dropOn:       nil,
		mu:           sync.RWMutex{},
		entries:      make(map[string]entry[T]),
		revalidating: make(map[string]bool),
		group:        singleflight.Group{},
		wg:           sync.WaitGroup{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the value for key. The first generation of a key is awaited and its error is returned.
// It is shared by concurrent callers and outlives any one of them, while each caller stops waiting
// when its own ctx is done. Later calls never wait: a stale value is returned while it is regenerated
// in the background.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		var zero T

		genCtx := context.WithoutCancel(ctx)

		ch := c.group.DoChan(key, func() (any, error) {
			return c.regenerate(genCtx, key)
		})

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("failed to wait for %s page: %w", c.name, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}

			return res.Val.(T), nil
		}
	}

	if _, fresh := c.fresh(key); !fresh {
		c.revalidateInBackground(ctx, key)
	}

	return e.value, nil
}

// Invalidate drops key so the next Get generates it again.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Wait blocks until background regenerations finish.
func (c *Cache[T]) Wait() {
	c.wg.Wait()
}

// revalidateInBackground starts at most one goroutine per key.
func (c *Cache[T]) revalidateInBackground(ctx context.Context, key string) {
	c.mu.Lock()
	if c.revalidating[key] {
		c.mu.Unlock()

		return
	}

	c.revalidating[key] = true
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		defer func() {
			c.mu.Lock()
			delete(c.revalidating, key)
			c.mu.Unlock()
		}()

		_, err, shared := c.group.Do(key, func() (any, error) {
			if e, fresh := c.fresh(key); fresh {
				return e.value, nil
			}

			return c.regenerate(ctx, key)
		})
		if err == nil || shared {
			return
		}

		if c.dropOn != nil && c.dropOn(err) {
			slog.InfoContext(ctx, "dropping page after failed regeneration", "page", c.name, "key", key, "error", err)
			c.Invalidate(key)

			return
		}

		slog.ErrorContext(ctx, "failed to regenerate page, serving stale", "page", c.name, "key", key, "error", err)
	}()
}

func (c *Cache[T]) fresh(key string) (entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[key]

	return e, found && c.now().Sub(e.generatedAt) < c.revalidate
}

func (c *Cache[T]) regenerate(ctx context.Context, key string) (T, error) {
	v, err := c.generate(ctx, key)

	if c.observer != nil {
		c.observer.ObserveGeneration(c.name, err)
	}

	if err != nil {
		var zero T

		return zero, fmt.Errorf("failed to generate %s page: %w", c.name, err)
	}

	c.mu.Lock()
	c.entries[key] = entry[T]{value: v, generatedAt: c.now()}
	c.mu.Unlock()

	slog.DebugContext(ctx, "page generated", "page", c.name, "key", key)

	return v, nil
}
