package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"notes-client/internal/collection"
	"notes-client/internal/di"
	"notes-client/internal/model"
)

func printNotes(st collection.State) {
	if st.IsEmpty() {
		fmt.Println("no notes")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tCATEGORY\tTITLE\tTAGS\tUPDATED")
	for _, n := range st.Notes {
		done := " "
		if n.IsCompleted {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, done, n.Priority, n.Category, n.Title, strings.Join(n.Tags, ","),
			n.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()

	p := st.Pagination
	fmt.Printf("\nshown %d of %d (page %d/%d)\n", len(st.Notes), p.TotalCount, p.Page, max(p.TotalPages, 1))
}

func printNote(n model.Note) {
	state := "pending"
	if n.IsCompleted {
		state = "completed"
	}
	fmt.Printf("%s  %s [%s, %s]\n", n.ID, n.Title, n.Priority, state)
	if n.Category != "" {
		fmt.Printf("  category: %s\n", n.Category)
	}
	if len(n.Tags) > 0 {
		fmt.Printf("  tags:     %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Printf("\n%s\n", n.Content)
}

// findNote загружает страницы, пока заметка с id не окажется в окне Collection Store
func findNote(ctx context.Context, s *collection.Store, id string) (model.Note, error) {
	if err := s.LoadNotes(ctx, false); err != nil {
		return model.Note{}, err
	}
	for {
		if n, ok := s.NoteByID(id); ok {
			return n, nil
		}
		if !s.State().CanLoadMore() {
			return model.Note{}, fmt.Errorf("note %s not found", id)
		}
		if err := s.LoadMoreNotes(ctx); err != nil {
			return model.Note{}, err
		}
	}
}

// noteFlags флаги содержимого заметки для add и edit
type noteFlags struct {
	title    string
	content  string
	tags     []string
	priority string
	category string
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&f.content, "content", "b", "", "Content")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable or comma separated)")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium, high, urgent")
	cmd.Flags().StringVar(&f.category, "category", "", "Category")
}

// apply переносит заданные флаги в заметку
func (f *noteFlags) apply(cmd *cobra.Command, n *model.Note) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		n.Title = f.title
	}
	if flags.Changed("content") {
		n.Content = f.content
	}
	if flags.Changed("tag") {
		n.Tags = model.NormalizeTags(f.tags)
	}
	if flags.Changed("priority") {
		p := model.Priority(strings.ToLower(f.priority))
		if !p.IsValid() {
			return fmt.Errorf("unknown priority %q", f.priority)
		}
		n.Priority = p
	}
	if flags.Changed("category") {
		n.Category = f.category
	}
	return nil
}

func init() {
	var (
		all       bool
		search    string
		category  string
		tags      []string
		priority  string
		completed bool
		pending   bool
		sortBy    string
		asc       bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notes with filters and sorting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && pending {
				return errors.New("--completed and --pending are mutually exclusive")
			}
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				c := s.Collection
				flags := cmd.Flags()

				// Каждый фильтр перезапрашивает первую страницу; без фильтров - одна загрузка
				steps := []func() error{}
				if search != "" {
					steps = append(steps, func() error { return c.SearchNotes(ctx, search) })
				}
				if flags.Changed("category") {
					steps = append(steps, func() error { return c.FilterByCategory(ctx, &category) })
				}
				if len(tags) > 0 {
					steps = append(steps, func() error { return c.FilterByTags(ctx, model.NormalizeTags(tags)) })
				}
				if priority != "" {
					p := model.Priority(strings.ToLower(priority))
					if !p.IsValid() {
						return fmt.Errorf("unknown priority %q", priority)
					}
					steps = append(steps, func() error { return c.FilterByPriority(ctx, &p) })
				}
				if completed || pending {
					steps = append(steps, func() error { return c.FilterByCompletion(ctx, &completed) })
				}
				if sortBy != "" || asc {
					dir := model.SortDesc
					if asc {
						dir = model.SortAsc
					}
					order := model.NoteSort{Field: model.SortField(sortBy), Direction: dir}
					steps = append(steps, func() error { return c.ChangeSorting(ctx, order) })
				}
				if len(steps) == 0 {
					steps = append(steps, func() error { return c.LoadNotes(ctx, false) })
				}
				for _, step := range steps {
					if err := step(); err != nil {
						return err
					}
				}

				for all && c.State().CanLoadMore() {
					if err := c.LoadMoreNotes(ctx); err != nil {
						return err
					}
				}
				printNotes(c.State())
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&pageSizeFlag, "page-size", 0, "Page size (overrides client.page_size)")
	listCmd.Flags().BoolVar(&all, "all", false, "Load every page")
	listCmd.Flags().StringVarP(&search, "search", "s", "", "Search in title and content")
	listCmd.Flags().StringVar(&category, "category", "", "Category")
	listCmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable or comma separated)")
	listCmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority: low, medium, high, urgent")
	listCmd.Flags().BoolVar(&completed, "completed", false, "Only completed notes")
	listCmd.Flags().BoolVar(&pending, "pending", false, "Only pending notes")
	listCmd.Flags().StringVar(&sortBy, "sort", "", "Sort field: createdAt, updatedAt, title, priority")
	listCmd.Flags().BoolVar(&asc, "asc", false, "Ascending order")
	rootCmd.AddCommand(listCmd)

	var addFlags noteFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				n := s.Collection.NewNote()
				if err := addFlags.apply(cmd, &n); err != nil {
					return err
				}
				created, err := s.Collection.CreateNote(ctx, n)
				if err != nil {
					return err
				}
				printNote(created)
				return nil
			})
		},
	}
	addFlags.register(addCmd)
	_ = addCmd.MarkFlagRequired("title")
	_ = addCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(addCmd)

	var editFlags noteFlags
	var done, undone bool
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				n, err := findNote(ctx, s.Collection, args[0])
				if err != nil {
					return err
				}
				if err := editFlags.apply(cmd, &n); err != nil {
					return err
				}
				if done || undone {
					n.IsCompleted = done
				}
				updated, err := s.Collection.UpdateNote(ctx, n.ID, n)
				if err != nil {
					return err
				}
				printNote(updated)
				return nil
			})
		},
	}
	editFlags.register(editCmd)
	editCmd.Flags().BoolVar(&done, "done", false, "Mark as completed")
	editCmd.Flags().BoolVar(&undone, "undone", false, "Mark as pending")
	editCmd.MarkFlagsMutuallyExclusive("done", "undone")
	rootCmd.AddCommand(editCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "toggle ID",
		Short: "Toggle note completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				if _, err := findNote(ctx, s.Collection, args[0]); err != nil {
					return err
				}
				n, err := s.Collection.ToggleNoteCompletion(ctx, args[0])
				if err != nil {
					return err
				}
				if n != nil {
					printNote(*n)
				}
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "rm ID...",
		Short: "Delete notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				var errs []error
				for _, id := range args {
					if err := s.Collection.DeleteNote(ctx, id); err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", id, err))
						continue
					}
					fmt.Println("deleted", id)
				}
				return errors.Join(errs...)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "meta",
		Short: "Show categories, tags and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				// Частичная загрузка все равно печатается
				metaErr := s.Collection.LoadMetadata(ctx)
				st := s.Collection.State()

				fmt.Printf("categories: %s\n", strings.Join(st.Categories, ", "))
				fmt.Printf("tags:       %s\n", strings.Join(st.Tags, ", "))

				for _, k := range slices.Sorted(maps.Keys(st.Statistics)) {
					fmt.Printf("%-16s %d\n", k+":", st.Statistics[k])
				}
				return metaErr
			})
		},
	})
}
