package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/gallery/internal/gallery"
)

func newBrowseCommand(a *app) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List gallery images page by page",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			col, err := a.collection()
			if err != nil {
				return err
			}
			if err := loadPages(cmd.Context(), col, pages); err != nil {
				return err
			}
			a.printItems(col)
			return nil
		},
	}

	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Number of pages to load")
	return cmd
}

// loadPages drives LoadNext until n fetches have succeeded or the collection
// is exhausted. The loaded items are kept when a later page fails.
func loadPages(ctx context.Context, col *gallery.Collection, n int) error {
	for i := 0; i < n && col.HasMore(); i++ {
		col.LoadNext(ctx)
		if err := col.LastError(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printItems(col *gallery.Collection) {
	items := col.CurrentItems()
	for i, img := range items {
		fmt.Fprintf(a.out, "%3d  %-20s  %s\n", i+1, img.Title, img.URL)
		if img.Description != "" {
			fmt.Fprintf(a.out, "     %s\n", img.Description)
		}
	}
	more := "end of gallery"
	if col.HasMore() {
		more = "more available"
	}
	fmt.Fprintf(a.out, "%d images, %s\n", len(items), more)
}
