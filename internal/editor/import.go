package editor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"gopkg.in/yaml.v3"
)

const importedNoteTitle = "Imported Note"

// NoteCreator is the subset of notes.Repository Import needs.
type NoteCreator interface {
	AddNote(ctx context.Context, draft notes.NoteDraft) (string, error)
}

// ImportOptions overrides values read from the imported file.
type ImportOptions struct {
	Title string
	Tags  []string
}

// ImportedNote describes what Import parsed before creating the note.
type ImportedNote struct {
	ID    string
	Title string
	Tags  []string
}

// Import creates a note from a markdown or text file. Leading YAML front matter
// contributes title, tags and favorite flag and is removed from the content. The
// title is the first non-empty of opts.Title, the front matter title, the file
// name without extension and "Imported Note". Tags from opts follow the front
// matter tags. Invalid UTF-8 sequences become U+FFFD.
func Import(ctx context.Context, creator NoteCreator, name string, data []byte, opts ImportOptions) (ImportedNote, error) {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	meta, content := splitFrontMatter(text)

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "." || stem == string(filepath.Separator) {
		stem = ""
	}
	title := firstNonEmpty(opts.Title, meta.Title, stem, importedNoteTitle)
	tags := append(append([]string{}, meta.Tags...), opts.Tags...)

	id, err := creator.AddNote(ctx, notes.NoteDraft{
		Title:      title,
		Content:    content,
		Tags:       tags,
		IsFavorite: meta.Favorite,
	})
	if err != nil {
		return ImportedNote{}, err
	}
	return ImportedNote{ID: id, Title: title, Tags: tags}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
// Text without a complete block is returned unchanged.
// splitFrontMatter separates a leading YAML block from the body. A block that
// does not parse as YAML is ordinary content, so the whole text is returned.
func splitFrontMatter(text string) (frontMatter, string) {
	var meta frontMatter
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	rest, ok := strings.CutPrefix(normalized, "---\n")
	if !ok {
		return meta, text
	}
	block, body, found := strings.Cut(rest, "\n---")
	if !found {
		return meta, text
	}
	if line, remainder, hasNewline := strings.Cut(body, "\n"); hasNewline && strings.TrimSpace(line) == "" {
		body = remainder
	} else if strings.TrimSpace(body) == "" {
		body = ""
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return frontMatter{}, text
	}
	return meta, strings.TrimPrefix(body, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
