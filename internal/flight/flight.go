// Package flight shares one in-progress call among concurrent callers of the same key.
package flight

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// call is one execution shared by every caller that joined it.
type call struct {
	// key is unique per execution so a finished or abandoned call is never rejoined.
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Group runs at most one call per key on behalf of every caller waiting on it.
// A caller whose context ends returns its own context error without affecting
// the others; the shared call is cancelled only when no caller is left.
type Group struct {
	group singleflight.Group

	mutex sync.Mutex
	calls map[string]*call
	seq   uint64
}

// Do runs fn once for every concurrent caller of key and returns its result.
// fn receives a context carrying the first caller's values but none of its
// cancellation.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	g.mutex.Lock()

	if g.calls == nil {
		g.calls = make(map[string]*call)
	}

	c, ok := g.calls[key]
	if !ok {
		g.seq++

		callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call{key: key + "#" + strconv.FormatUint(g.seq, 10), ctx: callCtx, cancel: cancel}
		g.calls[key] = c
	}

	c.waiters++

	// Joining under the mutex guarantees the singleflight call is still running:
	// it unregisters itself under the same mutex before returning.
	results := g.group.DoChan(c.key, func() (interface{}, error) {
		defer g.finish(key, c)

		return fn(c.ctx)
	})

	g.mutex.Unlock()

	select {
	case result := <-results:
		return result.Val, result.Err
	case <-ctx.Done():
		g.leave(key, c)

		return nil, ctx.Err()
	}
}

// Waiting returns the number of callers waiting on the current call of key.
func (g *Group) Waiting(key string) int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if c, ok := g.calls[key]; ok {
		return c.waiters
	}

	return 0
}

func (g *Group) finish(key string, c *call) {
	g.mutex.Lock()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
	g.mutex.Unlock()

	c.cancel()
}

func (g *Group) leave(key string, c *call) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	c.waiters--
	if c.waiters > 0 {
		return
	}

	if g.calls[key] == c {
		delete(g.calls, key)
	}

	c.cancel()
}
