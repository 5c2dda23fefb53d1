package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: "todos",
	Short:   "List todos",
	Long: `List todos from the local store.

The mirror snapshot is folded into the store first, so edits made by another
session show up. With --fast only the snapshot is read; descriptions and the
pending marker are not available in that mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("filter")
		search, _ := cmd.Flags().GetString("search")
		fast, _ := cmd.Flags().GetBool("fast")

		st, err := schema.ParseStatus(status)
		if err != nil {
			return err
		}
		filter := schema.Filter{Status: st, Search: search}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if fast {
				snap, err := a.facade.Snapshot()
				if err != nil {
					return err
				}
				shown := 0
				for _, p := range snap {
					if !filter.MatchProjection(p) {
						continue
					}
					printLine(p.ID, p.Title, p.Completed, false)
					shown++
				}
				printFooter(shown, len(snap))
				return nil
			}

			todos, err := a.facade.LoadAll(ctx)
			if err != nil {
				return err
			}
			shown := filter.Apply(todos)
			for _, t := range shown {
				printLine(t.ID, t.Title, t.Completed, t.IsPending())
			}
			printFooter(len(shown), len(todos))
			return nil
		})
	},
}

func printLine(id int64, title string, completed, pending bool) {
	if completed {
		title = ui.RenderDone(title)
	}
	marker := ""
	if pending {
		marker = " " + ui.RenderWarn("●")
	}
	fmt.Printf("%s %s %s%s\n", ui.Checkbox(completed), ui.RenderMuted(fmt.Sprintf("%4d", id)), title, marker)
}

func printFooter(shown, total int) {
	if total == 0 {
		fmt.Println(ui.RenderMuted("No todos yet. Add one with 'todosync add'."))
		return
	}
	fmt.Println(ui.RenderMuted(fmt.Sprintf("%d of %d shown", shown, total)))
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "todos",
	Short:   "Show one todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			t, err := a.facade.Get(ctx, id)
			if err != nil {
				return err
			}
			syncState := ui.RenderPass("synced")
			if t.IsPending() {
				syncState = ui.RenderWarn("pending push")
			}
			lines := []string{
				ui.RenderTitle(t.Title),
				"",
				fmt.Sprintf("ID:        %d", t.ID),
				fmt.Sprintf("Completed: %t", t.Completed),
				fmt.Sprintf("Sync:      %s", syncState),
			}
			if t.Description != "" {
				lines = append(lines, "", t.Description)
			}
			fmt.Println(ui.Panel(lines...))
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:     "add [title...]",
	GroupID: "todos",
	Short:   "Add a todo",
	Long: `Add a todo. Without a title on the command line an interactive form asks
for one; blank titles are rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		description, _ := cmd.Flags().GetString("description")

		if strings.TrimSpace(title) == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("title is required")
			}
			if err := promptTodo(&title, &description); err != nil {
				return err
			}
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			saved, err := a.facade.Save(ctx, schema.Todo{Title: title, Description: description})
			if err != nil {
				return err
			}
			fmt.Printf("%s Added %s %s\n", ui.RenderPass("✓"), ui.RenderAccent(fmt.Sprintf("#%d", saved.ID)), saved.Title)
			return nil
		})
	},
}

func promptTodo(title, description *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title must not be blank")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Value(description),
		),
	)
	return form.Run()
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	GroupID: "todos",
	Short:   "Change a todo's title or description",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var patch schema.Patch
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			patch.Description = &v
		}
		if patch.IsEmpty() {
			return errors.New("nothing to change: pass --title or --description")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			updated, err := a.facade.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Printf("%s Updated #%d %s\n", ui.RenderPass("✓"), updated.ID, updated.Title)
			return nil
		})
	},
}

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	GroupID: "todos",
	Short:   "Toggle a todo's completion",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			t, err := a.facade.Toggle(ctx, id)
			if err != nil {
				return err
			}
			state := "reopened"
			if t.Completed {
				state = "completed"
			}
			fmt.Printf("%s #%d %s\n", ui.RenderPass("✓"), t.ID, state)
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	GroupID: "todos",
	Short:   "Remove a todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.facade.Remove(ctx, id); err != nil {
				return err
			}
			fmt.Printf("%s Removed #%d\n", ui.RenderPass("✓"), id)
			return nil
		})
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", s)
	}
	return id, nil
}

func init() {
	listCmd.Flags().String("filter", "all", "all, completed or incomplete")
	listCmd.Flags().StringP("search", "s", "", "case-insensitive title search")
	listCmd.Flags().Bool("fast", false, "read the mirror snapshot only")

	addCmd.Flags().StringP("description", "d", "", "todo description")

	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().StringP("description", "d", "", "new description")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, editCmd, doneCmd, rmCmd)
}
