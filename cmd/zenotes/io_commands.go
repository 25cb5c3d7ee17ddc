package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/zenotes/internal/editor"
	"github.com/MarcoPoloResearchLab/zenotes/internal/settings"
	"github.com/MarcoPoloResearchLab/zenotes/internal/summarize"
	"github.com/spf13/cobra"
)

var errUnknownSetting = errors.New("unknown setting")

func newExportCommand() *cobra.Command {
	var (
		formatName string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a note as markdown with front matter or as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := editor.ParseFormat(formatName)
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				document, err := editor.Export(note, format)
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err = cmd.OutOrStdout().Write(document.Body)
					return err
				}
				target := outPath
				if info, statErr := os.Stat(outPath); statErr == nil && info.IsDir() {
					target = filepath.Join(outPath, document.Filename)
				}
				if err := os.WriteFile(target, document.Body, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "markdown", "Export format (markdown, html)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file or directory (stdout when empty)")
	return cmd
}

func newImportCommand() *cobra.Command {
	var (
		title string
		tags  []string
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a note from a markdown or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), func(app *application) error {
				imported, err := editor.Import(cmd.Context(), app.repository, filepath.Base(args[0]), data, editor.ImportOptions{
					Title: title,
					Tags:  tags,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", imported.ID, imported.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title overriding front matter and file name")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	return cmd
}

func newSummarizeCommand() *cobra.Command {
	var appendSummary bool
	cmd := &cobra.Command{
		Use:   "summarize <id>",
		Short: "Summarize a note with Gemini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				var summary string
				if appendSummary {
					session, sessionErr := editor.NewSession(editor.SessionConfig{
						Repository: app.repository,
						Summarizer: app.summarizer,
						Logger:     app.logger,
					})
					if sessionErr != nil {
						return sessionErr
					}
					defer session.Close()
					session.Load(note.ID)
					summary, err = session.Summarize(cmd.Context())
					if err == nil {
						err = session.Save(cmd.Context())
					}
				} else {
					summary, err = app.summarizer.Summarize(cmd.Context(), note.Content)
				}
				if err != nil {
					return errors.New(summarize.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&appendSummary, "append", false, "Append the summary to the note under a Summary heading")
	return cmd
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				printSettings(cmd, app.settings.Current())
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference (name, email, font-size, auto-save, dark-mode, default-view)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSettingsPatch(args[0], args[1])
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), func(app *application) error {
				updated, err := app.settings.Update(cmd.Context(), patch)
				if err != nil {
					return err
				}
				printSettings(cmd, updated)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "dark-mode",
		Short: "Toggle dark mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				printSettings(cmd, app.settings.ToggleDarkMode(cmd.Context()))
				return nil
			})
		},
	})
	return cmd
}

func parseSettingsPatch(key, value string) (settings.Patch, error) {
	var patch settings.Patch
	switch strings.ToLower(strings.ReplaceAll(key, "_", "-")) {
	case "name":
		patch.Name = &value
	case "email":
		patch.Email = &value
	case "font-size", "fontsize":
		size, err := strconv.Atoi(value)
		if err != nil {
			return settings.Patch{}, fmt.Errorf("%w: %q", settings.ErrInvalidFontSize, value)
		}
		patch.FontSize = &size
	case "auto-save", "autosave":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return settings.Patch{}, err
		}
		patch.AutoSave = &enabled
	case "dark-mode", "darkmode":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return settings.Patch{}, err
		}
		patch.DarkMode = &enabled
	case "default-view", "defaultview", "view":
		view, err := settings.ParseView(value)
		if err != nil {
			return settings.Patch{}, err
		}
		patch.DefaultView = &view
	default:
		return settings.Patch{}, fmt.Errorf("%w: %s", errUnknownSetting, key)
	}
	return patch, nil
}

func printSettings(cmd *cobra.Command, current settings.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:         %s\n", current.Name)
	fmt.Fprintf(out, "email:        %s\n", current.Email)
	fmt.Fprintf(out, "font-size:    %d\n", current.FontSize)
	fmt.Fprintf(out, "auto-save:    %t\n", current.AutoSave)
	fmt.Fprintf(out, "dark-mode:    %t\n", current.DarkMode)
	fmt.Fprintf(out, "default-view: %s\n", current.DefaultView)
}
