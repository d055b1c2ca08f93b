package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dal/internal/core"
	"dal/internal/document"
)

type analyzeOptions struct {
	title       string
	acceptAll   bool
	interactive bool
	in          io.Reader
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
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

	return analyzeDocument(ctx, s.controller, doc, out, analyzeOptions{
		title:       docTitle,
		acceptAll:   acceptAll,
		interactive: interactive,
		in:          os.Stdin,
	})
}

// analyzeDocument runs one review pass over doc and prints the result.
func analyzeDocument(ctx context.Context, c *core.Controller, doc *document.Document, out io.Writer, opts analyzeOptions) error {
	c.LoadDocument(doc)
	if opts.title != "" {
		if err := c.SetTitle(opts.title); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "🔍 Analyzing...")
	res, err := c.Analyze(ctx, c.PlainText())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n📝 %s\n\n", res.OverallAnalysis)
	if len(res.Suggestions) == 0 {
		fmt.Fprintln(out, "✨ No suggestions.")
		return nil
	}
	core.DisplaySuggestions(out, res.Suggestions)
	if len(res.Unlocatable) > 0 {
		fmt.Fprintf(out, "\n⚠️  %d suggestion(s) not found in the text\n", len(res.Unlocatable))
	}

	switch {
	case opts.acceptAll:
		applied := c.AcceptAll()
		fmt.Fprintf(out, "\n✅ Accepted %d suggestion(s)\n", len(applied.Applied))
	case opts.interactive:
		fmt.Fprintln(out)
		if err := core.NewCLISession(c, opts.in, out).Run(ctx); err != nil {
			return err
		}
	default:
		return nil
	}

	printTracked(out, c)
	return nil
}

func printTracked(out io.Writer, c *core.Controller) {
	fmt.Fprintln(out, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out, core.RenderTracked(c.Document()))
}
