package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dal/internal/core"
	"dal/internal/document"
)

func runRefineCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(ctx, out)
	if err != nil {
		return err
	}
	defer s.Close()

	return refineFragment(ctx, s.controller, doc, out, selectText, instruction)
}

// refineFragment rewrites selected inside doc and prints the tracked text.
func refineFragment(ctx context.Context, c *core.Controller, doc *document.Document, out io.Writer, selected, instr string) error {
	c.LoadDocument(doc)
	rec, err := c.RefineSelection(ctx, selected, instr)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✏️  %s → %s\n", rec.Original, rec.Replacement)
	printTracked(out, c)
	return nil
}

func runAltTextCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession(ctx, out)
	if err != nil {
		return err
	}
	defer s.Close()

	return describeImage(ctx, s.controller, out, args[0], altPrompt, altCaption)
}

func describeImage(ctx context.Context, c *core.Controller, out io.Writer, url, prompt, caption string) error {
	alt, err := c.DescribeImage(ctx, url, prompt, caption)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, alt)
	return nil
}
