package backend

import (
	"slices"
	"sync"
)

// Snapshotter reads the current value at a path for feed delivery.
type Snapshotter func(segs []string) any

type feedListener struct {
	id   int64
	segs []string
	cb   func(any)
}

// Feed is an in-process registry of OnDataChange listeners. Callbacks run
// on the notifying goroutine, outside the feed lock.
type Feed struct {
	mu        sync.Mutex
	next      int64
	listeners map[int64]feedListener
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed { return &Feed{listeners: map[int64]feedListener{}} }

// Add registers cb for segs and returns a cancel func.
func (f *Feed) Add(segs []string, cb func(any)) func() {
	f.mu.Lock()
	f.next++
	id := f.next
	f.listeners[id] = feedListener{id: id, segs: append([]string{}, segs...), cb: cb}
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

// Notify calls every listener related to the changed path with its own
// current value.
func (f *Feed) Notify(changed []string, snapshot Snapshotter) {
	f.mu.Lock()
	targets := make([]feedListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		if Related(l.segs, changed) {
			targets = append(targets, l)
		}
	}
	f.mu.Unlock()
	// registration order
	slices.SortFunc(targets, func(a, b feedListener) int { return int(a.id - b.id) })
	for _, l := range targets {
		l.cb(snapshot(l.segs))
	}
}

// Len reports how many listeners are registered.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

var (
	sharedMu    sync.Mutex
	sharedFeeds = map[string]*Feed{}
)

// SharedFeed returns the process-wide feed for a database identity, so that
// clients dialed separately against the same database see each other's
// writes.
func SharedFeed(key string) *Feed {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	f, ok := sharedFeeds[key]
	if !ok {
		f = NewFeed()
		sharedFeeds[key] = f
	}
	return f
}
