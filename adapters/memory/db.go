package memory

import (
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/backend"
)

// DB is a concurrent in-memory JSON tree with a change feed.
// Every Client opened on the same DB shares its data and listeners.
type DB struct {
	mu       sync.Mutex
	root     map[string]any
	feed     *backend.Feed
	onCommit func(root map[string]any) error
}

// NewDB creates an empty private database.
func NewDB() *DB { return &DB{feed: backend.NewFeed()} }

var (
	registryMu sync.Mutex
	registry   = map[string]*DB{}
)

// Open returns the process-wide database registered under name, creating
// it on first use.
func Open(name string) *DB {
	registryMu.Lock()
	defer registryMu.Unlock()
	db, ok := registry[name]
	if !ok {
		db = NewDB()
		registry[name] = db
	}
	return db
}

// Load replaces the whole tree without notifying listeners.
func (db *DB) Load(root map[string]any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if root == nil {
		db.root = nil
		return
	}
	db.root = backend.Clone(root).(map[string]any)
}

// OnCommit installs a hook that runs with the next tree before a write is
// applied. A hook error aborts the write.
func (db *DB) OnCommit(fn func(root map[string]any) error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.onCommit = fn
}

// Snapshot returns a deep copy of the value at segs, or nil.
func (db *DB) Snapshot(segs []string) any {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(segs) == 0 {
		if db.root == nil {
			return nil
		}
		return backend.Clone(db.root)
	}
	v, ok := backend.Lookup(db.root, segs)
	if !ok {
		return nil
	}
	return backend.Clone(v)
}

// Mutate applies fn to a copy of the tree, commits it, and notifies
// listeners related to segs.
func (db *DB) Mutate(segs []string, fn func(root map[string]any) map[string]any) error {
	db.mu.Lock()
	var work map[string]any
	if db.root != nil {
		work = backend.Clone(db.root).(map[string]any)
	}
	next := fn(work)
	if db.onCommit != nil {
		if err := db.onCommit(next); err != nil {
			db.mu.Unlock()
			return err
		}
	}
	db.root = next
	db.mu.Unlock()

	db.feed.Notify(segs, db.Snapshot)
	return nil
}

// Feed exposes the listener registry of the database.
func (db *DB) Feed() *backend.Feed { return db.feed }
