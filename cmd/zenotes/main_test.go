package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/zenotes/internal/editor"
	"github.com/MarcoPoloResearchLab/zenotes/internal/mindmap"
	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/MarcoPoloResearchLab/zenotes/internal/settings"
	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

func newMemoryRepository(t *testing.T, ids ...string) *notes.Repository {
	t.Helper()
	fileSystem, err := mem.NewFS()
	require.NoError(t, err)
	store, err := storage.NewFileStore(fileSystem, nil)
	require.NoError(t, err)
	next := 0
	repository, err := notes.NewRepository(notes.RepositoryConfig{
		Store: store,
		IDProvider: notes.IDProviderFunc(func() (string, error) {
			if next >= len(ids) {
				return "", errors.New("out of ids")
			}
			next++
			return ids[next-1], nil
		}),
	})
	require.NoError(t, err)
	repository.Load(context.Background())
	return repository
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd := newRootCommand()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), "zenotes %s", strings.Join(args, " "))
	return out.String()
}

func TestCommandsShareTheDataDirectory(t *testing.T) {
	dataDir := t.TempDir()
	base := []string{"--data-dir", dataDir, "--log-level", "error"}

	id := strings.TrimSpace(runCLI(t, append(base, "new", "Groceries", "--content", "# Shop\n- milk", "--tag", "errands")...))
	require.NotEmpty(t, id)

	listed := runCLI(t, append(base, "list")...)
	require.Contains(t, listed, id)
	require.Contains(t, listed, "Welcome to Zenotes")

	shown := runCLI(t, append(base, "show", id[:8])...)
	require.Contains(t, shown, "# Groceries")
	require.Contains(t, shown, "tags: errands")

	outline := runCLI(t, append(base, "mindmap", id)...)
	require.Equal(t, "Groceries\n  Shop\n    milk\n", outline)

	exportPath := filepath.Join(dataDir, "out.md")
	runCLI(t, append(base, "export", id, "--out", exportPath)...)
	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	require.Contains(t, string(exported), "title: Groceries")

	_, err = os.Stat(filepath.Join(dataDir, storage.NotesKey+".json"))
	require.NoError(t, err)

	runCLI(t, append(base, "rm", id)...)
	require.NotContains(t, runCLI(t, append(base, "list")...), id)
}

func TestTagsCommandFiltersByName(t *testing.T) {
	dataDir := t.TempDir()
	base := []string{"--data-dir", dataDir, "--log-level", "error"}
	runCLI(t, append(base, "new", "Groceries", "--tag", "Errands")...)

	all := runCLI(t, append(base, "tags")...)
	require.Contains(t, all, "welcome")
	require.Contains(t, all, "Errands")

	filtered := runCLI(t, append(base, "tags", "--filter", "ERRAND")...)
	require.Contains(t, filtered, "Errands")
	require.NotContains(t, filtered, "welcome")
	require.NotContains(t, filtered, "tutorial")

	require.Empty(t, runCLI(t, append(base, "tags", "--filter", "garden")...))
}

func TestSettingsCommandPersistsPreferences(t *testing.T) {
	dataDir := t.TempDir()
	base := []string{"--data-dir", dataDir, "--storage-backend", "sqlite", "--log-level", "error"}

	runCLI(t, append(base, "settings", "set", "font-size", "18")...)
	shown := runCLI(t, append(base, "settings")...)
	require.Contains(t, shown, "font-size:    18")

	_, err := os.Stat(filepath.Join(dataDir, "zenotes.db"))
	require.NoError(t, err)
}

func TestParseSettingsPatch(t *testing.T) {
	patch, err := parseSettingsPatch("font_size", "16")
	require.NoError(t, err)
	require.Equal(t, 16, *patch.FontSize)

	patch, err = parseSettingsPatch("default-view", "preview")
	require.NoError(t, err)
	require.Equal(t, settings.ViewPreview, *patch.DefaultView)

	patch, err = parseSettingsPatch("dark-mode", "true")
	require.NoError(t, err)
	require.True(t, *patch.DarkMode)

	_, err = parseSettingsPatch("font-size", "big")
	require.ErrorIs(t, err, settings.ErrInvalidFontSize)

	_, err = parseSettingsPatch("default-view", "grid")
	require.ErrorIs(t, err, settings.ErrInvalidView)

	_, err = parseSettingsPatch("color", "red")
	require.ErrorIs(t, err, errUnknownSetting)
}

func TestResolveNoteAcceptsUniquePrefixes(t *testing.T) {
	repository := newMemoryRepository(t, "abc-1", "abd-2")
	ctx := context.Background()
	for range 2 {
		_, err := repository.AddNote(ctx, notes.NoteDraft{Title: "x"})
		require.NoError(t, err)
	}

	note, err := resolveNote(repository, "abc")
	require.NoError(t, err)
	require.Equal(t, "abc-1", note.ID)

	note, err = resolveNote(repository, notes.SampleNoteID)
	require.NoError(t, err)
	require.Equal(t, notes.SampleNoteID, note.ID)

	_, err = resolveNote(repository, "ab")
	require.ErrorIs(t, err, errAmbiguousNoteID)

	_, err = resolveNote(repository, "zzz")
	require.ErrorIs(t, err, errNoteNotFound)

	_, err = resolveNote(repository, " ")
	require.ErrorIs(t, err, errNoteNotFound)
}

func newTestShell(t *testing.T, summarizer editor.Summarizer) (*editShell, *notes.Repository, *bytes.Buffer, string) {
	t.Helper()
	repository := newMemoryRepository(t, "note-1")
	id, err := repository.AddNote(context.Background(), notes.NoteDraft{Title: "Draft"})
	require.NoError(t, err)
	session, err := editor.NewSession(editor.SessionConfig{Repository: repository, Summarizer: summarizer})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	require.True(t, session.Load(id))
	var out bytes.Buffer
	return &editShell{session: session, out: &out}, repository, &out, id
}

func TestEditShellAppendsLinesAndSavesOnQuit(t *testing.T) {
	shell, repository, _, id := newTestShell(t, nil)
	ctx := context.Background()

	for _, line := range []string{"# Heading", "- item", ":title Renamed"} {
		quit, err := shell.execute(ctx, line)
		require.NoError(t, err)
		require.False(t, quit)
	}
	require.Equal(t, "zenotes*> ", shell.prompt())

	note, _ := repository.GetNote(id)
	require.Equal(t, "", note.Content)

	quit, err := shell.execute(ctx, ":quit")
	require.NoError(t, err)
	require.True(t, quit)

	note, _ = repository.GetNote(id)
	require.Equal(t, "# Heading\n- item", note.Content)
	require.Equal(t, "Renamed", note.Title)
}

func TestEditShellUndoRedoAndDiscard(t *testing.T) {
	shell, repository, out, id := newTestShell(t, nil)
	ctx := context.Background()

	_, err := shell.execute(ctx, "first")
	require.NoError(t, err)
	_, err = shell.execute(ctx, "second")
	require.NoError(t, err)
	_, err = shell.execute(ctx, ":undo")
	require.NoError(t, err)
	draft, _ := shell.session.Draft()
	require.Equal(t, "first", draft.Content)

	_, err = shell.execute(ctx, ":redo")
	require.NoError(t, err)
	_, err = shell.execute(ctx, ":redo")
	require.NoError(t, err)
	require.Contains(t, out.String(), "nothing to redo")

	quit, err := shell.execute(ctx, ":quit!")
	require.NoError(t, err)
	require.True(t, quit)
	note, _ := repository.GetNote(id)
	require.Equal(t, "", note.Content)
}

func TestEditShellTagsFavoritesAndMindMap(t *testing.T) {
	shell, repository, out, id := newTestShell(t, nil)
	ctx := context.Background()

	_, err := shell.execute(ctx, ":tag work")
	require.NoError(t, err)
	_, err = shell.execute(ctx, ":fav")
	require.NoError(t, err)
	note, _ := repository.GetNote(id)
	require.Equal(t, []string{"work"}, note.Tags)
	require.True(t, note.IsFavorite)

	_, err = shell.execute(ctx, ":tag")
	require.Error(t, err)

	_, err = shell.execute(ctx, "# Topic")
	require.NoError(t, err)
	out.Reset()
	_, err = shell.execute(ctx, ":mindmap")
	require.NoError(t, err)
	require.Equal(t, "Draft\n  Topic\n", out.String())

	_, err = shell.execute(ctx, ":bogus")
	require.ErrorIs(t, err, errUnknownEditCommand)
}

func TestEditShellSummarize(t *testing.T) {
	shell, _, out, _ := newTestShell(t, stubSummarizer{summary: "Tiny."})
	ctx := context.Background()

	_, err := shell.execute(ctx, "Some long content")
	require.NoError(t, err)
	_, err = shell.execute(ctx, ":summarize")
	require.NoError(t, err)
	require.Contains(t, out.String(), "Tiny.")
	draft, _ := shell.session.Draft()
	require.Equal(t, "Some long content\n\n## Summary\n\nTiny.", draft.Content)

	failing, _, _, _ := newTestShell(t, stubSummarizer{err: fmt.Errorf("boom")})
	_, err = failing.execute(ctx, ":summarize")
	require.EqualError(t, err, "Failed to generate summary")
}

func TestPrintOutlineFollowsEdges(t *testing.T) {
	var out bytes.Buffer
	printOutline(&out, mindmap.Project("# A\n## B\n# C", "Root"))
	require.Equal(t, "Root\n  A\n    B\n  C\n", out.String())
}
