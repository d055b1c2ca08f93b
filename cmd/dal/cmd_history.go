package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dal/internal/core"
)

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(ctx, out)
	if err != nil {
		return err
	}
	defer s.Close()

	return listHistory(ctx, s.controller, out)
}

func listHistory(ctx context.Context, c *core.Controller, out io.Writer) error {
	records, err := c.ListHistory(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s  %s  %-40s %d/%d accepted\n",
			rec.ID,
			rec.UpdatedAt.Local().Format("2006-01-02 15:04"),
			rec.Title,
			rec.AcceptedCount,
			len(rec.Suggestions),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(ctx, out)
	if err != nil {
		return err
	}
	defer s.Close()

	return showHistory(ctx, s.controller, out, args[0])
}

func showHistory(ctx context.Context, c *core.Controller, out io.Writer, id string) error {
	if err := c.OpenHistory(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "📄 %s\n\n", c.State().DocumentTitle)
	core.DisplaySuggestions(out, c.Suggestions())
	printTracked(out, c)
	return nil
}
