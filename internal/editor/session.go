// Package editor holds the transient edit session for a single note: draft
// fields, undo history, dirty tracking and debounced autosave.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"go.uber.org/zap"
)

// DefaultAutosaveDelay is the quiet period before a pending edit is committed.
const DefaultAutosaveDelay = time.Second

const summaryHeading = "\n\n## Summary\n\n"

var (
	// ErrNotLoaded indicates an operation that needs a loaded note.
	ErrNotLoaded = errors.New("editor: no note loaded")
	// ErrNoteNotFound indicates the loaded note no longer exists in the repository.
	ErrNoteNotFound = errors.New("editor: note not found")
	// ErrNoSummarizer indicates the session was built without a summarizer.
	ErrNoSummarizer = errors.New("editor: summarizer not configured")
	errMissingRepo  = errors.New("editor: repository is required")
)

// Repository is the subset of notes.Repository a session commits through.
type Repository interface {
	GetNote(id string) (notes.Note, bool)
	UpdateNote(ctx context.Context, id string, patch notes.NotePatch) bool
	ToggleFavorite(ctx context.Context, id string) bool
	AddTag(ctx context.Context, id, tag string) bool
	RemoveTag(ctx context.Context, id, tag string) bool
}

// Summarizer produces a summary for note content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Timer is a pending autosave.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SessionConfig describes the dependencies of a Session.
type SessionConfig struct {
	Repository Repository
	Summarizer Summarizer
	// AutoSave reports whether edits should arm the autosave timer. It is read
	// on every edit so preference changes apply immediately. Nil disables autosave.
	AutoSave      func() bool
	AutosaveDelay time.Duration
	AfterFunc     AfterFunc
	Logger        *zap.Logger
}

// Draft is the editable copy of a note.
type Draft struct {
	NoteID     string
	Title      string
	Content    string
	Tags       []string
	IsFavorite bool
}

// Session edits one note at a time.
type Session struct {
	repository Repository
	summarizer Summarizer
	autoSave   func() bool
	delay      time.Duration
	afterFunc  AfterFunc
	logger     *zap.Logger

	mu              sync.Mutex
	loaded          bool
	draft           Draft
	baselineTitle   string
	baselineContent string
	undo            []string
	redo            []string
	timer           Timer
	generation      uint64
}

// NewSession validates cfg and returns an unloaded session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepo
	}
	delay := cfg.AutosaveDelay
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	afterFunc := cfg.AfterFunc
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	autoSave := cfg.AutoSave
	if autoSave == nil {
		autoSave = func() bool { return false }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		repository: cfg.Repository,
		summarizer: cfg.Summarizer,
		autoSave:   autoSave,
		delay:      delay,
		afterFunc:  afterFunc,
		logger:     logger,
	}, nil
}

// Load starts editing the note with id. Pending autosaves for the previous note
// are cancelled and its unsaved edits are dropped. Unknown ids leave the session
// unloaded and report false.
func (s *Session) Load(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	note, ok := s.repository.GetNote(id)
	if !ok {
		return false
	}
	s.loaded = true
	s.draft = Draft{
		NoteID:     note.ID,
		Title:      note.Title,
		Content:    note.Content,
		Tags:       append([]string{}, note.Tags...),
		IsFavorite: note.IsFavorite,
	}
	s.baselineTitle = note.Title
	s.baselineContent = note.Content
	return true
}

// Close cancels any pending autosave and discards the draft.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.cancelTimerLocked()
	s.loaded = false
	s.draft = Draft{}
	s.baselineTitle = ""
	s.baselineContent = ""
	s.undo = nil
	s.redo = nil
}

// Loaded reports whether a note is being edited.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Draft{}, false
	}
	draft := s.draft
	draft.Tags = append([]string{}, s.draft.Tags...)
	return draft, true
}

// SetContent replaces the draft content as one undoable edit. Setting identical
// content is a no-op.
func (s *Session) SetContent(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || content == s.draft.Content {
		return false
	}
	s.undo = append(s.undo, s.draft.Content)
	s.redo = nil
	s.draft.Content = content
	s.armLocked()
	return true
}

// SetTitle replaces the draft title. Titles are not part of the undo history.
func (s *Session) SetTitle(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || title == s.draft.Title {
		return false
	}
	s.draft.Title = title
	s.armLocked()
	return true
}

// Undo restores the previous content. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || len(s.undo) == 0 {
		return false
	}
	last := len(s.undo) - 1
	s.redo = append(s.redo, s.draft.Content)
	s.draft.Content = s.undo[last]
	s.undo = s.undo[:last]
	s.armLocked()
	return true
}

// Redo reapplies the most recently undone content.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || len(s.redo) == 0 {
		return false
	}
	last := len(s.redo) - 1
	s.undo = append(s.undo, s.draft.Content)
	s.draft.Content = s.redo[last]
	s.redo = s.redo[:last]
	s.armLocked()
	return true
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && len(s.undo) > 0
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && len(s.redo) > 0
}

// Dirty reports whether the draft differs from what was last saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	return s.loaded && (s.draft.Title != s.baselineTitle || s.draft.Content != s.baselineContent)
}

// Save commits the draft title and content and cancels any pending autosave.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	s.cancelTimerLocked()
	return s.commitLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) error {
	title := s.draft.Title
	content := s.draft.Content
	if !s.repository.UpdateNote(ctx, s.draft.NoteID, notes.NotePatch{Title: &title, Content: &content}) {
		return ErrNoteNotFound
	}
	s.baselineTitle = title
	s.baselineContent = content
	return nil
}

// armLocked restarts the autosave debounce for the loaded note.
func (s *Session) armLocked() {
	s.cancelTimerLocked()
	if !s.autoSave() {
		return
	}
	noteID := s.draft.NoteID
	generation := s.generation
	s.timer = s.afterFunc(s.delay, func() {
		s.autosave(noteID, generation)
	})
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *Session) autosave(noteID string, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.draft.NoteID != noteID || s.generation != generation {
		return
	}
	s.timer = nil
	if !s.dirtyLocked() {
		return
	}
	if err := s.commitLocked(context.Background()); err != nil {
		s.logger.Warn("autosave skipped",
			zap.String("operation", "editor.autosave"),
			zap.String("note_id", noteID),
			zap.Error(err),
		)
	}
}

// ToggleFavorite flips the favorite flag in the repository and mirrors it into the draft.
func (s *Session) ToggleFavorite(ctx context.Context) error {
	return s.passThrough(func(id string) bool {
		return s.repository.ToggleFavorite(ctx, id)
	})
}

// AddTag attaches tag in the repository and mirrors the result into the draft.
// It reports whether the note changed.
func (s *Session) AddTag(ctx context.Context, tag string) (bool, error) {
	changed := false
	err := s.passThrough(func(id string) bool {
		changed = s.repository.AddTag(ctx, id, tag)
		return true
	})
	return changed, err
}

// RemoveTag detaches tag in the repository and mirrors the result into the draft.
func (s *Session) RemoveTag(ctx context.Context, tag string) (bool, error) {
	changed := false
	err := s.passThrough(func(id string) bool {
		changed = s.repository.RemoveTag(ctx, id, tag)
		return true
	})
	return changed, err
}

func (s *Session) passThrough(action func(id string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	if !action(s.draft.NoteID) {
		return ErrNoteNotFound
	}
	note, ok := s.repository.GetNote(s.draft.NoteID)
	if !ok {
		return ErrNoteNotFound
	}
	s.draft.Tags = append([]string{}, note.Tags...)
	s.draft.IsFavorite = note.IsFavorite
	return nil
}

// Summarize asks the summarizer for a summary of the current content and appends
// it under a Summary heading as one undoable edit. On failure the content is left
// untouched and the summarizer's error is returned.
func (s *Session) Summarize(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", ErrNotLoaded
	}
	if s.summarizer == nil {
		s.mu.Unlock()
		return "", ErrNoSummarizer
	}
	noteID := s.draft.NoteID
	content := s.draft.Content
	s.mu.Unlock()

	summary, err := s.summarizer.Summarize(ctx, content)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.draft.NoteID != noteID {
		return "", ErrNotLoaded
	}
	s.undo = append(s.undo, s.draft.Content)
	s.redo = nil
	s.draft.Content += summaryHeading + summary
	s.armLocked()
	return summary, nil
}
