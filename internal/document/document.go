// Package document implements the editable rich-text model that suggestions
// are reconciled against: an arena of blocks holding marked text runs.
//
// All offsets are rune offsets into the flattened plain text. Ranges are
// bound to the revision they were obtained from and every successful
// transaction bumps the revision.
package document

import (
	"iter"
	"strings"
	"unicode/utf8"

	"dal/internal/markup"
)

// Document is a tree of blocks containing marked runs. It is not safe for
// concurrent use; the owning session serialises access.
type Document struct {
	blocks []Block
	rev    uint64
}

// Range is a half-open rune range valid against one document revision.
type Range struct {
	Start int
	End   int
	rev   uint64
}

// Len returns the range length in runes.
func (r Range) Len() int {
	return r.End - r.Start
}

// Revision returns the document revision the range was obtained from.
func (r Range) Revision() uint64 {
	return r.rev
}

// TextNode is one text-bearing run as seen by Descendants.
type TextNode struct {
	Block int
	Index int
	Run
}

// New returns an empty document with a single empty paragraph.
func New() *Document {
	return &Document{blocks: []Block{{Kind: BlockParagraph}}, rev: 1}
}

// FromText builds a document with one paragraph per line. Line terminators
// stay in the run text so PlainText returns s unchanged.
func FromText(s string) *Document {
	if s == "" {
		return New()
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	blocks := make([]Block, len(lines))
	for i, line := range lines {
		blocks[i] = Block{Kind: BlockParagraph, Runs: []Run{{Text: line}}}
	}
	return &Document{blocks: blocks, rev: 1}
}

// FromMarkdown parses Markdown into blocks with formatting marks.
func FromMarkdown(s string) *Document {
	parsed := markup.Parse(s)
	if len(parsed) == 0 {
		return New()
	}
	blocks := make([]Block, 0, len(parsed))
	for _, pb := range parsed {
		if pb.Kind == markup.BlockHorizontal {
			continue
		}
		b := Block{Kind: blockKind(pb.Kind), Level: pb.Level}
		for _, sp := range pb.Spans {
			b.Runs = append(b.Runs, NewRun(sp.Text, spanMarks(sp)...))
		}
		blocks = append(blocks, b)
	}
	for i := 0; i < len(blocks)-1; i++ {
		blocks[i].Runs = append(blocks[i].Runs, Run{Text: "\n"})
	}
	return FromBlocks(blocks)
}

func blockKind(k markup.BlockKind) BlockKind {
	switch k {
	case markup.BlockHeading:
		return BlockHeading
	case markup.BlockListItem:
		return BlockListItem
	case markup.BlockQuote:
		return BlockQuote
	case markup.BlockCode:
		return BlockCode
	default:
		return BlockParagraph
	}
}

func spanMarks(sp markup.Span) []Mark {
	var marks []Mark
	if sp.Bold {
		marks = append(marks, NewMark(MarkBold))
	}
	if sp.Italic {
		marks = append(marks, NewMark(MarkItalic))
	}
	if sp.Code {
		marks = append(marks, NewMark(MarkCode))
	}
	if sp.Strike {
		marks = append(marks, NewMark(MarkStrike))
	}
	if sp.Link != "" {
		marks = append(marks, NewMark(MarkLink, "href", sp.Link))
	}
	return marks
}

// FromBlocks builds a document from a copy of the given blocks.
func FromBlocks(blocks []Block) *Document {
	if len(blocks) == 0 {
		return New()
	}
	cp := cloneBlocks(blocks)
	for i := range cp {
		cp[i].normalize()
	}
	return &Document{blocks: cp, rev: 1}
}

// Revision returns the current document revision.
func (d *Document) Revision() uint64 {
	return d.rev
}

// Len returns the length of the plain text in runes.
func (d *Document) Len() int {
	n := 0
	for _, b := range d.blocks {
		n += b.Len()
	}
	return n
}

// PlainText returns the concatenation of all run texts in document order.
func (d *Document) PlainText() string {
	var sb strings.Builder
	for _, b := range d.blocks {
		for _, r := range b.Runs {
			sb.WriteString(r.Text)
		}
	}
	return sb.String()
}

// Blocks returns a deep copy of the block tree.
func (d *Document) Blocks() []Block {
	return cloneBlocks(d.blocks)
}

// Clone returns an independent copy at the same revision.
func (d *Document) Clone() *Document {
	return &Document{blocks: cloneBlocks(d.blocks), rev: d.rev}
}

// Range returns a range over [start, end) bound to the current revision.
func (d *Document) Range(start, end int) (Range, error) {
	r := Range{Start: start, End: end, rev: d.rev}
	if err := d.check(r); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Valid reports whether r can still be used against the document.
func (d *Document) Valid(r Range) bool {
	return d.check(r) == nil
}

func (d *Document) check(r Range) error {
	if r.rev != d.rev {
		return &RangeError{Range: r, Revision: d.rev, Reason: "stale revision"}
	}
	if r.Start < 0 || r.End < r.Start || r.End > d.Len() {
		return &RangeError{Range: r, Revision: d.rev, Reason: "out of bounds"}
	}
	return nil
}

// Descendants yields every non-empty run with its absolute rune offset.
// The sequence reflects the document as it was when Descendants was
// called; transactions never mutate a published block slice.
func (d *Document) Descendants() iter.Seq2[TextNode, int] {
	blocks := d.blocks
	return func(yield func(TextNode, int) bool) {
		offset := 0
		for bi, b := range blocks {
			for ri, r := range b.Runs {
				if r.Text == "" {
					continue
				}
				if !yield(TextNode{Block: bi, Index: ri, Run: r}, offset) {
					return
				}
				offset += utf8.RuneCountInString(r.Text)
			}
		}
	}
}

// TextBetween returns the plain text covered by r.
func (d *Document) TextBetween(r Range) (string, error) {
	if err := d.check(r); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, run := range d.RunsIn(r) {
		sb.WriteString(run.Text)
	}
	return sb.String(), nil
}

// RunsIn returns copies of the runs covered by r, trimmed to its bounds.
// It returns nil when r is not valid.
func (d *Document) RunsIn(r Range) []Run {
	if d.check(r) != nil {
		return nil
	}
	var out []Run
	for node, offset := range d.Descendants() {
		n := node.Len()
		if offset+n <= r.Start || offset >= r.End {
			continue
		}
		from := max(r.Start-offset, 0)
		to := min(r.End-offset, n)
		run := node.Run.clone()
		run.Text = runeSlice(run.Text, from, to)
		out = append(out, run)
	}
	return out
}

// MarkedRanges returns the contiguous ranges whose runs carry a mark of the
// given kind with attribute key set to value. An empty key matches any mark
// of that kind.
func (d *Document) MarkedRanges(kind MarkKind, key, value string) []Range {
	var out []Range
	open := false
	var cur Range
	for node, offset := range d.Descendants() {
		m, ok := node.Mark(kind)
		match := ok && (key == "" || m.Attr(key) == value)
		switch {
		case match && open && cur.End == offset:
			cur.End = offset + node.Len()
		case match:
			if open {
				out = append(out, cur)
			}
			cur = Range{Start: offset, End: offset + node.Len(), rev: d.rev}
			open = true
		case open:
			out = append(out, cur)
			open = false
		}
	}
	if open {
		out = append(out, cur)
	}
	return out
}

func runeSlice(s string, from, to int) string {
	if from == 0 && to >= utf8.RuneCountInString(s) {
		return s
	}
	runes := []rune(s)
	return string(runes[from:to])
}
