package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"dal/internal/document"
	"dal/internal/reconcile"
	"dal/pkg/schema"
)

// CLISession walks a user through the pending suggestions of a session.
type CLISession struct {
	Controller *Controller
	in         *bufio.Reader
	out        io.Writer
}

// NewCLISession creates an interactive review over in and out.
func NewCLISession(c *Controller, in io.Reader, out io.Writer) *CLISession {
	return &CLISession{
		Controller: c,
		in:         bufio.NewReader(in),
		out:        out,
	}
}

// Run prompts for each pending suggestion until none are left, the user
// quits, or input ends.
func (s *CLISession) Run(ctx context.Context) error {
	skipped := make(map[string]bool)

	for {
		sg, ok := s.next(skipped)
		if !ok {
			fmt.Fprintln(s.out, "\n✨ No pending suggestions left.")
			return nil
		}
		if err := s.Controller.SelectSuggestion(sg.ID); err != nil {
			return err
		}

		fmt.Fprintln(s.out)
		displaySuggestion(s.out, sg)
		fmt.Fprint(s.out, "\n[a]ccept [r]eject [s]kip [u]ndo [e <instruction>] refine [q]uit: ")

		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		cmd, arg := parseCommand(line)
		switch cmd {
		case "a", "accept":
			if _, err := s.Controller.Accept(sg.ID); err != nil {
				fmt.Fprintf(s.out, "⚠️  %v\n", err)
				skipped[sg.ID] = true
				continue
			}
			fmt.Fprintln(s.out, "✅ Accepted")

		case "r", "reject":
			if err := s.Controller.Reject(sg.ID); err != nil {
				fmt.Fprintf(s.out, "⚠️  %v\n", err)
				skipped[sg.ID] = true
				continue
			}
			fmt.Fprintln(s.out, "❌ Rejected")

		case "s", "skip", "":
			skipped[sg.ID] = true

		case "u", "undo":
			changes := s.Controller.Changes()
			if len(changes) == 0 {
				fmt.Fprintln(s.out, "Nothing to undo.")
				continue
			}
			last := changes[len(changes)-1]
			restored, err := s.Controller.Undo(last.ID)
			if err != nil {
				fmt.Fprintf(s.out, "⚠️  %v\n", err)
				continue
			}
			delete(skipped, restored.ID)
			fmt.Fprintf(s.out, "↩️  Undid %s\n", last.ID)

		case "e", "refine":
			if arg == "" {
				fmt.Fprintln(s.out, "Usage: e <instruction>")
				continue
			}
			refined, err := s.Controller.Refine(ctx, sg.ID, arg)
			if err != nil {
				fmt.Fprintf(s.out, "⚠️  %v\n", err)
				continue
			}
			fmt.Fprintf(s.out, "✏️  New replacement: %s\n", refined.Replacement)

		case "q", "quit":
			s.Controller.ClearSelection()
			return nil

		default:
			fmt.Fprintf(s.out, "Unknown command %q\n", cmd)
		}
	}
}

func (s *CLISession) next(skipped map[string]bool) (schema.Suggestion, bool) {
	for _, sg := range s.Controller.Pending() {
		if !skipped[sg.ID] {
			return sg, true
		}
	}
	return schema.Suggestion{}, false
}

func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// displaySuggestion prints one suggestion.
func displaySuggestion(w io.Writer, sg schema.Suggestion) {
	fmt.Fprintf(w, "  [%s] %s\n", sg.Category, sg.ID)
	fmt.Fprintf(w, "      - %s\n", truncate(sg.Original, 80))
	fmt.Fprintf(w, "      + %s\n", truncate(sg.Replacement, 80))
	if sg.Reason != "" {
		fmt.Fprintf(w, "      Reason: %s\n", truncate(sg.Reason, 80))
	}
}

// DisplaySuggestions prints a numbered suggestion list with statuses.
func DisplaySuggestions(w io.Writer, suggestions []schema.Suggestion) {
	for i, sg := range suggestions {
		fmt.Fprintf(w, "%2d. (%s) ", i+1, sg.Status)
		displaySuggestion(w, sg)
	}
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// RenderTracked renders the document text with tracked edits shown as
// [-struck-] and {+inserted+}.
func RenderTracked(doc *document.Document) string {
	var sb strings.Builder
	var open document.MarkKind
	closeSpan := func() {
		switch open {
		case document.MarkDeletion:
			sb.WriteString("-]")
		case document.MarkInsertion:
			sb.WriteString("+}")
		}
		open = ""
	}

	for _, b := range doc.Blocks() {
		for _, r := range b.Runs {
			var kind document.MarkKind
			switch {
			case r.HasMark(document.MarkDeletion):
				kind = document.MarkDeletion
			case r.HasMark(document.MarkInsertion):
				kind = document.MarkInsertion
			}
			if kind != open {
				closeSpan()
				switch kind {
				case document.MarkDeletion:
					sb.WriteString("[-")
				case document.MarkInsertion:
					sb.WriteString("{+")
				}
				open = kind
			}
			sb.WriteString(r.Text)
		}
	}
	closeSpan()
	return sb.String()
}

// AcceptedText returns the document text as it reads with every tracked
// edit applied. The separator between a struck run and its insertion is
// dropped.
func AcceptedText(doc *document.Document) string {
	var runs []document.Run
	for _, b := range doc.Blocks() {
		runs = append(runs, b.Runs...)
	}

	var sb strings.Builder
	for i, r := range runs {
		if r.HasMark(document.MarkDeletion) {
			continue
		}
		if r.Text == reconcile.Separator && i > 0 && i+1 < len(runs) &&
			runs[i-1].HasMark(document.MarkDeletion) && runs[i+1].HasMark(document.MarkInsertion) {
			continue
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}
