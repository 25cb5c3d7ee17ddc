package editor

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Format selects an export encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ErrUnknownFormat indicates an unsupported export format.
var ErrUnknownFormat = errors.New("editor: unknown export format")

// ParseFormat accepts the format names and their common file extensions.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// Document is an exported note.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type frontMatter struct {
	Title    string    `yaml:"title"`
	Tags     []string  `yaml:"tags"`
	Favorite bool      `yaml:"favorite"`
	Created  time.Time `yaml:"created,omitempty"`
	Modified time.Time `yaml:"modified,omitempty"`
}

var (
	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	htmlPage = template.Must(template.New("note").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #1f2937; }
h1.note-title { font-weight: 300; }
.note-tags span { display: inline-block; margin-right: .5rem; padding: 0 .5rem; border-radius: 9999px; background: #f3f4f6; font-size: .875rem; }
pre { background: #f9fafb; padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
<h1 class="note-title">{{.Title}}</h1>
{{if .Tags}}<p class="note-tags">{{range .Tags}}<span>{{.}}</span>{{end}}</p>{{end}}
<article>
{{.Body}}
</article>
</body>
</html>
`))
)

// Filename derives a file name stem from title: lowercase, runs of anything but
// letters and digits collapsed to "-". An empty result becomes "untitled".
func Filename(title string) string {
	slug := strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// Export encodes note in format.
func Export(note notes.Note, format Format) (Document, error) {
	switch format {
	case FormatMarkdown:
		body, err := exportMarkdown(note)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Filename:    Filename(note.Title) + ".md",
			ContentType: "text/markdown; charset=utf-8",
			Body:        body,
		}, nil
	case FormatHTML:
		body, err := exportHTML(note)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Filename:    Filename(note.Title) + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        body,
		}, nil
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func exportMarkdown(note notes.Note) ([]byte, error) {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(frontMatter{
		Title:    note.Title,
		Tags:     tags,
		Favorite: note.IsFavorite,
		Created:  note.Created,
		Modified: note.Modified,
	}); err != nil {
		return nil, fmt.Errorf("editor: encode front matter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("editor: encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(note.Content)
	return buf.Bytes(), nil
}

func exportHTML(note notes.Note) ([]byte, error) {
	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(note.Content), &rendered); err != nil {
		return nil, fmt.Errorf("editor: render markdown: %w", err)
	}
	title := note.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled Note"
	}
	var page bytes.Buffer
	err := htmlPage.Execute(&page, struct {
		Title string
		Tags  []string
		Body  template.HTML
	}{
		Title: title,
		Tags:  note.Tags,
		// goldmark escapes raw HTML unless the unsafe renderer option is set.
		Body: template.HTML(rendered.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("editor: render page: %w", err)
	}
	return page.Bytes(), nil
}

// Export encodes the draft of the loaded note. Timestamps come from the repository.
func (s *Session) Export(format Format) (Document, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return Document{}, ErrNotLoaded
	}
	draft := s.draft
	draft.Tags = append([]string{}, s.draft.Tags...)
	s.mu.Unlock()

	note, ok := s.repository.GetNote(draft.NoteID)
	if !ok {
		return Document{}, ErrNoteNotFound
	}
	note.Title = draft.Title
	note.Content = draft.Content
	note.Tags = draft.Tags
	note.IsFavorite = draft.IsFavorite
	return Export(note, format)
}
