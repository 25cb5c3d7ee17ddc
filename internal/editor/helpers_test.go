package editor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"github.com/hack-pad/hackpadfs/mem"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *fakeScheduler) active() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*fakeTimer
	for _, timer := range s.timers {
		if !timer.stopped {
			result = append(result, timer)
		}
	}
	return result
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// fireActive runs every timer that has not been stopped.
func (s *fakeScheduler) fireActive() {
	for _, timer := range s.active() {
		timer.stopped = true
		timer.fn()
	}
}

type stubSummarizer struct {
	summary string
	err     error
	calls   []string
}

func (s *stubSummarizer) Summarize(_ context.Context, content string) (string, error) {
	s.calls = append(s.calls, content)
	return s.summary, s.err
}

type testFixture struct {
	repository *notes.Repository
	scheduler  *fakeScheduler
	session    *Session
	autoSave   bool
}

func newRepository(t *testing.T) *notes.Repository {
	t.Helper()
	fileSystem, err := mem.NewFS()
	if err != nil {
		t.Fatalf("failed to create memory fs: %v", err)
	}
	store, err := storage.NewFileStore(fileSystem, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	counter := 0
	repository, err := notes.NewRepository(notes.RepositoryConfig{
		Store: store,
		IDProvider: notes.IDProviderFunc(func() (string, error) {
			counter++
			return fmt.Sprintf("note-%d", counter), nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repository
}

func newFixture(t *testing.T, autoSave bool, summarizer Summarizer) *testFixture {
	t.Helper()
	fixture := &testFixture{
		repository: newRepository(t),
		scheduler:  &fakeScheduler{},
		autoSave:   autoSave,
	}
	session, err := NewSession(SessionConfig{
		Repository:    fixture.repository,
		Summarizer:    summarizer,
		AutoSave:      func() bool { return fixture.autoSave },
		AutosaveDelay: 250 * time.Millisecond,
		AfterFunc:     fixture.scheduler.AfterFunc,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	fixture.session = session
	return fixture
}

func (f *testFixture) addNote(t *testing.T, title, content string, tags ...string) string {
	t.Helper()
	id, err := f.repository.AddNote(context.Background(), notes.NoteDraft{Title: title, Content: content, Tags: tags})
	if err != nil {
		t.Fatalf("failed to add note: %v", err)
	}
	return id
}

func (f *testFixture) content(t *testing.T, id string) string {
	t.Helper()
	note, ok := f.repository.GetNote(id)
	if !ok {
		t.Fatalf("expected note %s to exist", id)
	}
	return note.Content
}

func (f *testFixture) draftContent(t *testing.T) string {
	t.Helper()
	draft, ok := f.session.Draft()
	if !ok {
		t.Fatalf("expected a loaded draft")
	}
	return draft.Content
}
