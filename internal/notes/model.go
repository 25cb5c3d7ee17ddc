package notes

import (
	"strings"
	"time"
)

// Note is one user document.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"isFavorite"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// HasTag reports whether the note carries tag. Matching is exact and case-sensitive.
func (n Note) HasTag(tag string) bool {
	for _, existing := range n.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

func (n Note) clone() Note {
	copied := n
	copied.Tags = append([]string{}, n.Tags...)
	return copied
}

// NoteDraft describes a note that has not been created yet.
type NoteDraft struct {
	Title      string
	Content    string
	Tags       []string
	IsFavorite bool
}

// NotePatch lists the fields UpdateNote should overwrite. Nil fields are left alone;
// a non-nil empty Tags slice clears the tags.
type NotePatch struct {
	Title      *string
	Content    *string
	Tags       []string
	IsFavorite *bool
}

func (p NotePatch) apply(note *Note) {
	if p.Title != nil {
		note.Title = *p.Title
	}
	if p.Content != nil {
		note.Content = *p.Content
	}
	if p.Tags != nil {
		note.Tags = uniqueTags(p.Tags)
	}
	if p.IsFavorite != nil {
		note.IsFavorite = *p.IsFavorite
	}
}

// NoteTemplate pre-populates new notes.
type NoteTemplate struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// NotesState is the persisted snapshot: notes newest first plus the template table.
type NotesState struct {
	Notes     []Note                  `json:"notes"`
	Templates map[string]NoteTemplate `json:"templates"`
}

// TagCount pairs a tag with the number of notes carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NoteStats summarizes a note's content size.
type NoteStats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
}

// ChangeKind names the mutation behind a ChangeEvent.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is delivered to subscribers after a mutation commits.
type ChangeEvent struct {
	Kind   ChangeKind
	NoteID string
	At     time.Time
}

// uniqueTags trims tags, drops empty ones and keeps the first occurrence of each.
func uniqueTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
