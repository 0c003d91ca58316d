// Package controller drives one screen: it owns the view state, keeps the
// address bar in sync with it and loads the backend page the state selects.
package controller

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"rdr-dashboard/viewstate"
)

// Phase is the lifecycle position of a Controller
type Phase int

const (
	Initializing Phase = iota
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "initializing"
}

// Fetcher loads the backend page selected by a view state
type Fetcher[S, P any] func(ctx context.Context, state S) (P, error)

// History is the address-bar writer. Replace overwrites the current entry.
type History interface {
	Replace(rawQuery string)
}

// HistoryFunc adapts a function to History
type HistoryFunc func(rawQuery string)

func (f HistoryFunc) Replace(rawQuery string) { f(rawQuery) }

// Options tunes a Controller
type Options struct {
	// Fence discards a response when a newer request was issued after it
	// (last issued wins). Without it every response is applied in arrival
	// order (last resolved wins).
	Fence bool
	// Name identifies the screen in log lines
	Name string
}

// Snapshot is a consistent copy of the controller state
type Snapshot[S, P any] struct {
	State   S
	Phase   Phase
	Loading bool
	Loaded  bool
	Page    P
	Err     error
	Seq     uint64 // sequence number of the latest issued request
}

// Pager returns the pagination controls for the snapshot
func (s Snapshot[S, P]) Pager() Pager {
	return NewPager(s.State, s.Page, s.Loaded)
}

// Controller owns the view state of one mounted screen
type Controller[S, P any] struct {
	fetch   Fetcher[S, P]
	history History
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   S
	phase   Phase
	page    P
	loaded  bool
	loading bool
	err     error
	issued  uint64
	pending int
	changed chan struct{}
	subs    map[int]func(Snapshot[S, P])
	nextSub int
}

// New creates a controller in the Initializing phase
func New[S, P any](fetch Fetcher[S, P], history History, opts Options) *Controller[S, P] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[S, P]{
		fetch:   fetch,
		history: history,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		state:   viewstate.Default[S](),
		changed: make(chan struct{}),
		subs:    make(map[int]func(Snapshot[S, P])),
	}
}

// Mount decodes the address bar, writes back its canonical form and issues
// the initial fetch.
func (c *Controller[S, P]) Mount(rawQuery string) {
	c.mu.Lock()
	c.state = viewstate.Decode[S](rawQuery)
	c.phase = Ready
	encoded := viewstate.Encode(c.state)
	c.issueLocked()
	c.mu.Unlock()

	c.history.Replace(encoded)
	c.notify()
}

// Reduce applies mutate to a copy of old. When a server-relevant field other
// than the offset changed and the offset itself did not, the offset is reset
// to 0. refetch reports whether the backend request changed.
func Reduce[S any](old S, mutate func(*S)) (next S, refetch bool) {
	next = old
	mutate(&next)
	offsetMoved := viewstate.Offset(next) != viewstate.Offset(old)
	if viewstate.ServerChanged(old, next) {
		if !offsetMoved {
			viewstate.SetOffset(&next, 0)
		}
		return next, true
	}
	return next, offsetMoved
}

// Update mutates the view state, replaces the address bar and issues a fetch
// when the change is server-relevant. It reports whether a fetch was issued.
func (c *Controller[S, P]) Update(mutate func(*S)) bool {
	c.mu.Lock()
	if c.phase != Ready {
		c.mu.Unlock()
		log.Warn().Str("screen", c.opts.Name).Msg("Update before mount ignored")
		return false
	}
	next, refetch := Reduce(c.state, mutate)
	c.state = next
	encoded := viewstate.Encode(next)
	if refetch {
		c.issueLocked()
	}
	c.mu.Unlock()

	c.history.Replace(encoded)
	c.notify()
	return refetch
}

// Preview returns the encoded query Update(mutate) would write, without
// changing anything.
func (c *Controller[S, P]) Preview(mutate func(*S)) string {
	c.mu.Lock()
	next, _ := Reduce(c.state, mutate)
	c.mu.Unlock()
	return viewstate.Encode(next)
}

// Next moves to the page after the loaded one. It returns false when there
// is none.
func (c *Controller[S, P]) Next() bool {
	p := c.Snapshot().Pager()
	if !p.CanNext {
		return false
	}
	return c.Update(SetOffset[S](p.NextOffset))
}

// Prev moves one page back. It returns false on the first page.
func (c *Controller[S, P]) Prev() bool {
	p := c.Snapshot().Pager()
	if !p.CanPrev {
		return false
	}
	return c.Update(SetOffset[S](p.PrevOffset))
}

// issueLocked starts a fetch for the current state. c.mu must be held.
func (c *Controller[S, P]) issueLocked() {
	c.issued++
	seq := c.issued
	state := c.state
	c.pending++
	c.loading = true
	c.err = nil

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		page, err := c.fetch(c.ctx, state)
		c.resolve(seq, page, err)
	}()
}

func (c *Controller[S, P]) resolve(seq uint64, page P, err error) {
	c.mu.Lock()
	c.pending--
	stale := c.opts.Fence && seq < c.issued
	if stale {
		log.Debug().
			Str("screen", c.opts.Name).
			Uint64("seq", seq).
			Uint64("latest", c.issued).
			Msg("Discarding superseded response")
	} else {
		c.loading = false
		if err != nil {
			var zero P
			c.page, c.loaded, c.err = zero, false, err
		} else {
			c.page, c.loaded, c.err = page, true, nil
		}
	}
	c.mu.Unlock()

	if err != nil && !stale {
		log.Warn().Err(err).Str("screen", c.opts.Name).Uint64("seq", seq).Msg("Fetch failed")
	}
	c.notify()
}

// Snapshot returns the current state
func (c *Controller[S, P]) Snapshot() Snapshot[S, P] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[S, P]) snapshotLocked() Snapshot[S, P] {
	return Snapshot[S, P]{
		State:   c.state,
		Phase:   c.phase,
		Loading: c.loading,
		Loaded:  c.loaded,
		Page:    c.page,
		Err:     c.err,
		Seq:     c.issued,
	}
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (c *Controller[S, P]) Subscribe(fn func(Snapshot[S, P])) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller[S, P]) notify() {
	c.mu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot[S, P]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Wait blocks until no fetch is outstanding or ctx is done. The snapshot is
// returned in both cases.
func (c *Controller[S, P]) Wait(ctx context.Context) (Snapshot[S, P], error) {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close cancels outstanding fetches and waits for their goroutines.
func (c *Controller[S, P]) Close() {
	c.cancel()
	c.wg.Wait()
}
