package reconcile

import (
	"strings"

	"dal/internal/document"
	"dal/internal/markup"
)

// Separator sits between the struck text and the inserted replacement.
const Separator = " "

type trackedEdit struct {
	struck   string
	inserted string
}

// DeletionMark tags the struck half of a tracked edit.
func DeletionMark(id string) document.Mark {
	return document.NewMark(document.MarkDeletion, "id", "deleted-"+id, "ref", id)
}

// InsertionMark is the counterpart of DeletionMark.
func InsertionMark(id string) document.Mark {
	return document.NewMark(document.MarkInsertion, "id", "inserted-"+id, "ref", id)
}

// writeTrackedEdit replaces r with [struck runs][separator][replacement runs]
// in a single transaction. Struck runs keep their formatting. Any other
// highlight of id is cleared in the same transaction.
func (e *Engine) writeTrackedEdit(r document.Range, id, replacement string) (trackedEdit, error) {
	del := DeletionMark(id)
	var struck strings.Builder
	var runs []document.Run
	for _, run := range e.doc.RunsIn(r) {
		struck.WriteString(run.Text)
		clean := run.WithoutMarks(document.MarkSuggestion, document.MarkDeletion, document.MarkInsertion)
		runs = append(runs, document.NewRun(clean.Text, append(clean.Marks, del)...))
	}

	inserted := replacementRuns(replacement, InsertionMark(id))
	var insertedText strings.Builder
	for _, run := range inserted {
		insertedText.WriteString(run.Text)
	}

	runs = append(runs, document.NewRun(Separator))
	runs = append(runs, inserted...)

	ops := e.clearHighlightOps(id)
	ops = append(ops, document.Replace{Range: r, Runs: runs})
	if err := e.doc.ApplyTransaction(ops...); err != nil {
		return trackedEdit{}, e.defect("apply", id, err)
	}
	return trackedEdit{struck: struck.String(), inserted: insertedText.String()}, nil
}

// replacementRuns turns replacement Markdown into runs carrying mark plus
// the replacement's own inline formatting.
func replacementRuns(replacement string, mark document.Mark) []document.Run {
	replacement = strings.TrimSpace(replacement)
	if !markup.HasMarkup(replacement) {
		return []document.Run{document.NewRun(replacement, mark)}
	}
	var runs []document.Run
	for _, b := range document.FromMarkdown(replacement).Blocks() {
		for _, run := range b.Runs {
			runs = append(runs, document.NewRun(run.Text, append(run.Marks, mark)...))
		}
	}
	return runs
}
