package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/mindmap"
	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				return printNoteTable(cmd.OutOrStdout(), app.repository.Notes())
			})
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				printNote(cmd.OutOrStdout(), note)
				return nil
			})
		},
	}
}

func newNewCommand() *cobra.Command {
	var (
		templateName string
		content      string
		tags         []string
		favorite     bool
	)
	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a note, optionally from a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return withApplication(cmd.Context(), func(app *application) error {
				var (
					id  string
					err error
				)
				if templateName != "" {
					id, err = app.repository.AddNoteFromTemplate(cmd.Context(), templateName, title, tags)
				} else {
					id, err = app.repository.AddNote(cmd.Context(), notes.NoteDraft{
						Title:      title,
						Content:    content,
						Tags:       tags,
						IsFavorite: favorite,
					})
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&templateName, "template", "", "Template name (blank, meeting, journal, project)")
	cmd.Flags().StringVar(&content, "content", "", "Initial markdown content")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Mark the note as favorite")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				if !app.repository.DeleteNote(cmd.Context(), note.ID) {
					return fmt.Errorf("%w: %s", errNoteNotFound, note.ID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", note.ID)
				return nil
			})
		},
	}
}

func newFavoriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle the favorite flag of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				app.repository.ToggleFavorite(cmd.Context(), note.ID)
				updated, _ := app.repository.GetNote(note.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s favorite=%t\n", updated.ID, updated.IsFavorite)
				return nil
			})
		},
	}
}

func newTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> <tag>...",
		Short: "Attach tags to a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				for _, tag := range args[1:] {
					app.repository.AddTag(cmd.Context(), note.ID, tag)
				}
				updated, _ := app.repository.GetNote(note.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s tags=%s\n", updated.ID, strings.Join(updated.Tags, ","))
				return nil
			})
		},
	}
}

func newUntagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <id> <tag>...",
		Short: "Detach tags from a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				for _, tag := range args[1:] {
					app.repository.RemoveTag(cmd.Context(), note.ID, tag)
				}
				updated, _ := app.repository.GetNote(note.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s tags=%s\n", updated.ID, strings.Join(updated.Tags, ","))
				return nil
			})
		},
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, content and tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				return printNoteTable(cmd.OutOrStdout(), app.repository.SearchNotes(strings.Join(args, " ")))
			})
		},
	}
}

func newTagsCommand() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "tags [tag]",
		Short: "List tags with counts, or the notes carrying one tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				if len(args) == 1 {
					return printNoteTable(cmd.OutOrStdout(), app.repository.NotesByTag(args[0]))
				}
				writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, tag := range notes.FilterTagCounts(app.repository.AllTags(), filter) {
					fmt.Fprintf(writer, "%s\t%d\n", tag.Name, tag.Count)
				}
				return writer.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only list tags whose name contains this text, ignoring case")
	return cmd
}

func newFavoritesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				return printNoteTable(cmd.OutOrStdout(), app.repository.Favorites())
			})
		},
	}
}

func newMindMapCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "mindmap <id>",
		Short: "Project a note's markdown onto a mind map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				note, err := resolveNote(app.repository, args[0])
				if err != nil {
					return err
				}
				graph := mindmap.Project(note.Content, note.Title)
				if asJSON {
					encoder := json.NewEncoder(cmd.OutOrStdout())
					encoder.SetIndent("", "  ")
					return encoder.Encode(graph)
				}
				printOutline(cmd.OutOrStdout(), graph)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print nodes, edges and positions as JSON")
	return cmd
}

func printNoteTable(out io.Writer, list []notes.Note) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTITLE\tTAGS\tFAV\tMODIFIED")
	for _, note := range list {
		favorite := ""
		if note.IsFavorite {
			favorite = "*"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			note.ID,
			displayTitle(note.Title),
			strings.Join(note.Tags, ","),
			favorite,
			note.Modified.Local().Format(time.DateTime),
		)
	}
	return writer.Flush()
}

func printNote(out io.Writer, note notes.Note) {
	stats := notes.ContentStats(note.Content)
	fmt.Fprintf(out, "# %s\n", displayTitle(note.Title))
	fmt.Fprintf(out, "id: %s\n", note.ID)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "favorite: %t\n", note.IsFavorite)
	fmt.Fprintf(out, "modified: %s\n", note.Modified.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "words: %d  characters: %d\n\n", stats.Words, stats.Characters)
	fmt.Fprintln(out, note.Content)
}

// printOutline renders the graph as an indented tree, children in node order.
func printOutline(out io.Writer, graph mindmap.Graph) {
	children := make(map[string][]string, len(graph.Nodes))
	for _, edge := range graph.Edges {
		children[edge.Source] = append(children[edge.Source], edge.Target)
	}
	labels := make(map[string]string, len(graph.Nodes))
	for _, node := range graph.Nodes {
		labels[node.ID] = node.Label
	}
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), labels[id])
		for _, child := range children[id] {
			walk(child, depth+1)
		}
	}
	walk(mindmap.RootID, 0)
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return mindmap.UntitledNote
	}
	return title
}
