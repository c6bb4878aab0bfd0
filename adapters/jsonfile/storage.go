// Package jsonfile persists the realtime tree to a single JSON file.
// Suitable for demos and small deployments.
package jsonfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/memory"
)

var (
	openMu sync.Mutex
	opened = map[string]*memory.DB{}
)

// OpenDB loads the database stored at path and arranges for every write to
// be flushed back to it. Opening the same path twice returns the same DB.
func OpenDB(path string) (*memory.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	defer openMu.Unlock()
	if db, ok := opened[abs]; ok {
		return db, nil
	}
	db := memory.NewDB()
	root, err := load(abs)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	db.Load(root)
	db.OnCommit(func(next map[string]any) error { return persist(abs, next) })
	opened[abs] = db
	return db, nil
}

// New opens a client on the database stored at path.
func New(path string, opts ...memory.Option) (*memory.Client, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return memory.New(db, opts...), nil
}

func load(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	return root, nil
}

func persist(path string, root map[string]any) error {
	if root == nil {
		root = map[string]any{}
	}
	b, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
