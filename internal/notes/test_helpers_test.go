package notes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"github.com/hack-pad/hackpadfs/mem"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

type sequentialIDGenerator struct {
	next int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("note-%d", g.next), nil
}

// steppingClock advances by one second on every reading.
type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{current: time.Unix(1700000000, 0).UTC()}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

type countingStore struct {
	storage.Store
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value)
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type failingStore struct {
	getErr error
	setErr error
}

func (s failingStore) Get(context.Context, string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return nil, storage.ErrNotFound
}

func (s failingStore) Set(context.Context, string, []byte) error {
	return s.setErr
}

func newMemStore(t *testing.T) *countingStore {
	t.Helper()
	fileSystem, err := mem.NewFS()
	if err != nil {
		t.Fatalf("failed to create memory fs: %v", err)
	}
	store, err := storage.NewFileStore(fileSystem, nil)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return &countingStore{Store: store}
}

func newTestRepository(t *testing.T, store storage.Store) *Repository {
	t.Helper()
	repository, err := NewRepository(RepositoryConfig{
		Store:      store,
		Clock:      newSteppingClock().Now,
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repository
}

func mustAddNote(t *testing.T, repository *Repository, draft NoteDraft) string {
	t.Helper()
	id, err := repository.AddNote(context.Background(), draft)
	if err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	return id
}

func mustGetNote(t *testing.T, repository *Repository, id string) Note {
	t.Helper()
	note, ok := repository.GetNote(id)
	if !ok {
		t.Fatalf("expected note %s to exist", id)
	}
	return note
}

func stringPointer(value string) *string {
	return &value
}

func boolPointer(value bool) *bool {
	return &value
}
