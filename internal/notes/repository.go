package notes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"go.uber.org/zap"
)

var noOpLogger = zap.NewNop()

// LoadSource reports where Load took its state from.
type LoadSource string

const (
	LoadedSnapshot LoadSource = "snapshot"
	LoadedFirstRun LoadSource = "first_run"
)

// RepositoryConfig describes the dependencies of a Repository.
type RepositoryConfig struct {
	Store      storage.Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Repository owns the note collection and writes the full snapshot to the store
// after every mutation. Store failures are logged and never surface to callers;
// the in-memory state stays authoritative.
type Repository struct {
	store      storage.Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger

	mu    sync.RWMutex
	state NotesState

	listenersMu  sync.Mutex
	listeners    map[int]func(ChangeEvent)
	nextListener int
}

// NewRepository validates cfg and returns an empty repository. Call Load before use.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opRepositoryNew, reasonMissingStore, errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opRepositoryNew, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Repository{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		state:      NotesState{Notes: []Note{}, Templates: map[string]NoteTemplate{}},
		listeners:  make(map[int]func(ChangeEvent)),
	}, nil
}

// Load replaces the in-memory state with the persisted snapshot. A missing or
// unreadable snapshot falls back to the first-run state, which is then persisted.
func (r *Repository) Load(ctx context.Context) LoadSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := r.store.Get(ctx, storage.NotesKey)
	if err == nil {
		var snapshot NotesState
		if decodeErr := json.Unmarshal(payload, &snapshot); decodeErr == nil && snapshot.Notes != nil {
			r.state = normalizeState(snapshot)
			r.logger.Debug("notes snapshot loaded", zap.Int("notes", len(r.state.Notes)))
			return LoadedSnapshot
		} else if decodeErr != nil {
			r.logError(opLoad, reasonSnapshotInvalid, decodeErr)
		} else {
			r.logError(opLoad, reasonSnapshotInvalid, errors.New("snapshot has no notes collection"))
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		r.logError(opLoad, reasonSnapshotReadFailed, err)
	}

	r.state = FirstRunState(r.clock().UTC())
	r.persistLocked(ctx, opLoad)
	return LoadedFirstRun
}

func normalizeState(snapshot NotesState) NotesState {
	for index := range snapshot.Notes {
		if snapshot.Notes[index].Tags == nil {
			snapshot.Notes[index].Tags = []string{}
		}
	}
	if snapshot.Templates == nil {
		snapshot.Templates = map[string]NoteTemplate{}
	}
	return snapshot
}

// GetNote returns a copy of the note with id. The boolean is false when no such note exists.
func (r *Repository) GetNote(id string) (Note, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index := r.indexLocked(id)
	if index < 0 {
		return Note{}, false
	}
	return r.state.Notes[index].clone(), true
}

// Notes returns a copy of the collection, newest first.
func (r *Repository) Notes() []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneNotes(r.state.Notes)
}

// Templates returns a copy of the template table.
func (r *Repository) Templates() map[string]NoteTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[string]NoteTemplate, len(r.state.Templates))
	for name, template := range r.state.Templates {
		template.Tags = append([]string{}, template.Tags...)
		copied[name] = template
	}
	return copied
}

// Template returns the template registered under name.
func (r *Repository) Template(name string) (NoteTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	template, ok := r.state.Templates[name]
	if !ok {
		return NoteTemplate{}, false
	}
	template.Tags = append([]string{}, template.Tags...)
	return template, true
}

// Snapshot returns a deep copy of the full state.
func (r *Repository) Snapshot() NotesState {
	templates := r.Templates()
	return NotesState{Notes: r.Notes(), Templates: templates}
}

// AddNote creates a note from draft, prepends it and returns its id. An id
// already present in the collection is rejected and nothing changes.
func (r *Repository) AddNote(ctx context.Context, draft NoteDraft) (string, error) {
	id, err := r.idProvider.NewID()
	if err == nil && strings.TrimSpace(id) == "" {
		err = errEmptyIdentifier
	}
	if err != nil {
		r.logError(opAddNote, reasonIDGenerationFailed, err)
		return "", newServiceError(opAddNote, reasonIDGenerationFailed, err)
	}

	r.mu.Lock()
	if r.indexLocked(id) >= 0 {
		r.mu.Unlock()
		r.logError(opAddNote, reasonDuplicateID, errDuplicateID)
		return "", newServiceError(opAddNote, reasonDuplicateID, errDuplicateID)
	}
	now := r.clock().UTC()
	note := Note{
		ID:         id,
		Title:      draft.Title,
		Content:    draft.Content,
		Tags:       uniqueTags(draft.Tags),
		IsFavorite: draft.IsFavorite,
		Created:    now,
		Modified:   now,
	}
	notes := make([]Note, 0, len(r.state.Notes)+1)
	notes = append(notes, note)
	r.state.Notes = append(notes, r.state.Notes...)
	r.persistLocked(ctx, opAddNote)
	r.mu.Unlock()

	r.emit(ChangeEvent{Kind: ChangeCreated, NoteID: id, At: now})
	return id, nil
}

// AddNoteFromTemplate creates a note pre-populated from the named template. An empty
// title falls back to the template's title; extraTags precede the template's tags.
func (r *Repository) AddNoteFromTemplate(ctx context.Context, name, title string, extraTags []string) (string, error) {
	template, ok := r.Template(name)
	if !ok {
		return "", newServiceError(opAddNoteFromTemplate, reasonUnknownTemplate, ErrUnknownTemplate)
	}
	if strings.TrimSpace(title) == "" {
		title = template.Title
	}
	tags := append(append([]string{}, extraTags...), template.Tags...)
	return r.AddNote(ctx, NoteDraft{
		Title:   title,
		Content: template.Content,
		Tags:    tags,
	})
}

// UpdateNote merges patch into the note with id. It reports false for an unknown id.
func (r *Repository) UpdateNote(ctx context.Context, id string, patch NotePatch) bool {
	return r.mutate(ctx, opUpdateNote, id, func(note *Note) bool {
		patch.apply(note)
		return true
	})
}

// DeleteNote removes the note with id. It reports false for an unknown id.
func (r *Repository) DeleteNote(ctx context.Context, id string) bool {
	r.mu.Lock()
	index := r.indexLocked(id)
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	notes := make([]Note, 0, len(r.state.Notes)-1)
	notes = append(notes, r.state.Notes[:index]...)
	r.state.Notes = append(notes, r.state.Notes[index+1:]...)
	r.persistLocked(ctx, opDeleteNote)
	at := r.clock().UTC()
	r.mu.Unlock()

	r.emit(ChangeEvent{Kind: ChangeDeleted, NoteID: id, At: at})
	return true
}

// ToggleFavorite flips the favorite flag of the note with id.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) bool {
	return r.mutate(ctx, opToggleFavorite, id, func(note *Note) bool {
		note.IsFavorite = !note.IsFavorite
		return true
	})
}

// AddTag attaches tag to the note with id. Adding a tag that is already present,
// or a blank tag, changes nothing and reports false.
func (r *Repository) AddTag(ctx context.Context, id, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	return r.mutate(ctx, opAddTag, id, func(note *Note) bool {
		if note.HasTag(tag) {
			return false
		}
		note.Tags = append(note.Tags, tag)
		return true
	})
}

// RemoveTag detaches tag from the note with id and reports whether anything changed.
func (r *Repository) RemoveTag(ctx context.Context, id, tag string) bool {
	return r.mutate(ctx, opRemoveTag, id, func(note *Note) bool {
		kept := make([]string, 0, len(note.Tags))
		for _, existing := range note.Tags {
			if existing != tag {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(note.Tags) {
			return false
		}
		note.Tags = kept
		return true
	})
}

// Subscribe registers fn for change events and returns a function that removes it.
// Listeners run synchronously after the mutation has been committed.
func (r *Repository) Subscribe(fn func(ChangeEvent)) func() {
	if fn == nil {
		return func() {}
	}
	r.listenersMu.Lock()
	r.nextListener++
	key := r.nextListener
	r.listeners[key] = fn
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, key)
		r.listenersMu.Unlock()
	}
}

func (r *Repository) mutate(ctx context.Context, operation, id string, change func(*Note) bool) bool {
	r.mu.Lock()
	index := r.indexLocked(id)
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	note := r.state.Notes[index].clone()
	if !change(&note) {
		r.mu.Unlock()
		return false
	}
	note.Modified = r.nextModified(note.Modified)
	r.state.Notes[index] = note
	r.persistLocked(ctx, operation)
	r.mu.Unlock()

	r.emit(ChangeEvent{Kind: ChangeUpdated, NoteID: id, At: note.Modified})
	return true
}

// nextModified keeps modification times strictly increasing even when the clock
// has not advanced since the previous write.
func (r *Repository) nextModified(previous time.Time) time.Time {
	now := r.clock().UTC()
	if !now.After(previous) {
		return previous.Add(time.Nanosecond)
	}
	return now
}

func (r *Repository) indexLocked(id string) int {
	for index := range r.state.Notes {
		if r.state.Notes[index].ID == id {
			return index
		}
	}
	return -1
}

func (r *Repository) persistLocked(ctx context.Context, operation string) {
	payload, err := json.Marshal(r.state)
	if err != nil {
		r.logError(operation, reasonEncodeFailed, err)
		return
	}
	if err := r.store.Set(ctx, storage.NotesKey, payload); err != nil {
		r.logError(operation, reasonPersistFailed, err, zap.Int("bytes", len(payload)))
	}
}

func (r *Repository) emit(event ChangeEvent) {
	r.listenersMu.Lock()
	listeners := make([]func(ChangeEvent), 0, len(r.listeners))
	for _, listener := range r.listeners {
		listeners = append(listeners, listener)
	}
	r.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

func (r *Repository) loggerOrDefault() *zap.Logger {
	if r == nil || r.logger == nil {
		return noOpLogger
	}
	return r.logger
}

func (r *Repository) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.loggerOrDefault().Error("notes repository error", attrs...)
}

func cloneNotes(notes []Note) []Note {
	copied := make([]Note, len(notes))
	for index, note := range notes {
		copied[index] = note.clone()
	}
	return copied
}
