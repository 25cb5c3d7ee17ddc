package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/MarcoPoloResearchLab/zenotes/internal/editor"
	"github.com/MarcoPoloResearchLab/zenotes/internal/mindmap"
	"github.com/MarcoPoloResearchLab/zenotes/internal/summarize"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const editHelp = `Lines without a leading ':' are appended to the note.
  :show              print the draft
  :title <text>      rename the note
  :undo / :redo      step through content history
  :clear             empty the content
  :fav               toggle favorite
  :tag <tag>         attach a tag
  :untag <tag>       detach a tag
  :summarize         append an AI summary
  :mindmap           print the mind map outline
  :save              save now
  :quit              save and leave (:quit! discards unsaved edits)
  :help              show this help`

var errUnknownEditCommand = errors.New("unknown command")

func newEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a note in an interactive shell with undo and autosave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				session, err := editor.NewSession(editor.SessionConfig{
					Repository: app.repository,
					Summarizer: app.summarizer,
					AutoSave: func() bool {
						return app.settings.Current().AutoSave
					},
					AutosaveDelay: app.config.AutosaveDelay,
					Logger:        app.logger,
				})
				if err != nil {
					return err
				}
				defer session.Close()
				if !session.Load(note.ID) {
					return fmt.Errorf("%w: %s", errNoteNotFound, note.ID)
				}
				return runEditShell(cmd.Context(), session, filepath.Join(app.config.DataDir, "edit_history"), cmd.OutOrStdout())
			})
		},
	}
}

func runEditShell(ctx context.Context, session *editor.Session, historyFile string, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zenotes> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdout:          out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	shell := &editShell{session: session, out: out}
	fmt.Fprintln(out, "Type :help for commands.")
	shell.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(out, "Use :quit to leave the editor.")
			continue
		}
		if errors.Is(err, io.EOF) {
			_, err = shell.execute(ctx, ":quit")
			return err
		}
		if err != nil {
			return err
		}
		quit, err := shell.execute(ctx, line)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
		if quit {
			return nil
		}
		rl.SetPrompt(shell.prompt())
	}
}

// editShell maps shell input onto an editor session.
type editShell struct {
	session *editor.Session
	out     io.Writer
}

func (s *editShell) prompt() string {
	if s.session.Dirty() {
		return "zenotes*> "
	}
	return "zenotes> "
}

// execute runs one line of input and reports whether the shell should exit.
func (s *editShell) execute(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		draft, _ := s.session.Draft()
		content := line
		if draft.Content != "" {
			content = strings.TrimSuffix(draft.Content, "\n") + "\n" + line
		}
		s.session.SetContent(content)
		return false, nil
	}

	command, argument, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	argument = strings.TrimSpace(argument)
	switch command {
	case "show", "p":
		s.show()
	case "title":
		s.session.SetTitle(argument)
	case "undo", "u":
		if !s.session.Undo() {
			fmt.Fprintln(s.out, "nothing to undo")
		}
	case "redo", "r":
		if !s.session.Redo() {
			fmt.Fprintln(s.out, "nothing to redo")
		}
	case "clear":
		s.session.SetContent("")
	case "fav":
		if err := s.session.ToggleFavorite(ctx); err != nil {
			return false, err
		}
		draft, _ := s.session.Draft()
		fmt.Fprintf(s.out, "favorite=%t\n", draft.IsFavorite)
	case "tag", "untag":
		if argument == "" {
			return false, fmt.Errorf(":%s needs a tag", command)
		}
		var err error
		if command == "tag" {
			_, err = s.session.AddTag(ctx, argument)
		} else {
			_, err = s.session.RemoveTag(ctx, argument)
		}
		if err != nil {
			return false, err
		}
		draft, _ := s.session.Draft()
		fmt.Fprintf(s.out, "tags=%s\n", strings.Join(draft.Tags, ","))
	case "summarize":
		fmt.Fprintln(s.out, "Summarizing...")
		summary, err := s.session.Summarize(ctx)
		if err != nil {
			return false, errors.New(summarize.Message(err))
		}
		fmt.Fprintln(s.out, summary)
	case "mindmap":
		draft, _ := s.session.Draft()
		printOutline(s.out, mindmap.Project(draft.Content, draft.Title))
	case "save", "w":
		if err := s.session.Save(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "saved")
	case "quit", "q", "wq":
		if s.session.Dirty() {
			if err := s.session.Save(ctx); err != nil {
				return false, err
			}
		}
		return true, nil
	case "quit!", "q!":
		return true, nil
	case "help", "h":
		fmt.Fprintln(s.out, editHelp)
	default:
		return false, fmt.Errorf("%w: :%s", errUnknownEditCommand, command)
	}
	return false, nil
}

func (s *editShell) show() {
	draft, ok := s.session.Draft()
	if !ok {
		return
	}
	fmt.Fprintf(s.out, "# %s\n", displayTitle(draft.Title))
	if len(draft.Tags) > 0 {
		fmt.Fprintf(s.out, "tags: %s\n", strings.Join(draft.Tags, ", "))
	}
	fmt.Fprintln(s.out, "---")
	fmt.Fprintln(s.out, draft.Content)
	fmt.Fprintln(s.out, "---")
}
