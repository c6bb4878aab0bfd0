package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/ViniciusResende/PerguntaUFMG/security"
)

// IdentityStore keeps identity records in a small JSON file keyed by
// storage key.
type IdentityStore struct {
	path string
	mu   sync.Mutex
}

// NewIdentityStore creates a store backed by the file at path.
func NewIdentityStore(path string) *IdentityStore { return &IdentityStore{path: path} }

func (s *IdentityStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	v, ok := records[key]
	if !ok {
		return nil, security.ErrNotFound
	}
	return v, nil
}

func (s *IdentityStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	records[key] = json.RawMessage(append([]byte(nil), value...))
	return s.write(records)
}

func (s *IdentityStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)
	return s.write(records)
}

func (s *IdentityStore) read() (map[string]json.RawMessage, error) {
	records := map[string]json.RawMessage{}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *IdentityStore) write(records map[string]json.RawMessage) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, b)
}
