package document

import (
	"fmt"
	"slices"
)

// Op is a single document mutation. Ops are applied in order inside
// ApplyTransaction; each op's positions refer to the document as left by
// the ops before it.
type Op interface {
	apply(t *txn) error
	bounds() Range
}

// SetMark applies Mark to every run in Range.
type SetMark struct {
	Range Range
	Mark  Mark
}

// UnsetMark removes marks of Kind from every run in Range.
type UnsetMark struct {
	Range Range
	Kind  MarkKind
}

// Replace removes the content of Range and inserts Runs in its place.
// A range spanning blocks joins the first and last block.
type Replace struct {
	Range Range
	Runs  []Run
}

// InsertText inserts text at a position, inheriting the formatting marks of
// the run it lands in.
type InsertText struct {
	At   Range // Empty range marking the insertion point
	Text string
}

// SplitBlock splits the block at a position, terminating the first half
// with a newline.
type SplitBlock struct {
	At Range
}

func (o SetMark) bounds() Range    { return o.Range }
func (o UnsetMark) bounds() Range  { return o.Range }
func (o Replace) bounds() Range    { return o.Range }
func (o InsertText) bounds() Range { return o.At }
func (o SplitBlock) bounds() Range { return o.At }

// ApplyTransaction applies ops atomically: either all succeed and the
// revision advances, or the document is left untouched. Every op's range
// must carry the revision current at the start of the transaction.
func (d *Document) ApplyTransaction(ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}
	t := &txn{blocks: cloneBlocks(d.blocks)}
	for i, op := range ops {
		r := op.bounds()
		if r.rev != d.rev {
			return &RangeError{Range: r, Revision: d.rev, Reason: "stale revision"}
		}
		if r.Start < 0 || r.End < r.Start || r.End > t.len() {
			return &RangeError{Range: r, Revision: d.rev, Reason: fmt.Sprintf("op %d out of bounds", i)}
		}
		if err := op.apply(t); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	for i := range t.blocks {
		t.blocks[i].normalize()
	}
	d.blocks = t.blocks
	d.rev++
	return nil
}

// ApplyMark marks every run in r with m.
func (d *Document) ApplyMark(r Range, m Mark) error {
	return d.ApplyTransaction(SetMark{Range: r, Mark: m})
}

// ClearMark removes marks of kind from every run in r.
func (d *Document) ClearMark(r Range, kind MarkKind) error {
	return d.ApplyTransaction(UnsetMark{Range: r, Kind: kind})
}

// ReplaceRange replaces the content of r with runs.
func (d *Document) ReplaceRange(r Range, runs []Run) error {
	return d.ApplyTransaction(Replace{Range: r, Runs: runs})
}

// txn is the working copy a transaction mutates.
type txn struct {
	blocks []Block
}

func (t *txn) len() int {
	n := 0
	for _, b := range t.blocks {
		n += b.Len()
	}
	return n
}

// locate maps an absolute position to a block and a local offset. Positions
// on a block boundary resolve to the following block unless atEnd is set.
func (t *txn) locate(pos int, atEnd bool) (int, int) {
	start := 0
	for bi, b := range t.blocks {
		n := b.Len()
		if atEnd && pos > start && pos <= start+n {
			return bi, pos - start
		}
		if !atEnd && pos < start+n {
			return bi, pos - start
		}
		start += n
	}
	last := len(t.blocks) - 1
	return last, t.blocks[last].Len()
}

// split ensures a run boundary at local offset in block bi and returns the
// index of the first run starting at or after it.
func (t *txn) split(bi, local int) int {
	b := &t.blocks[bi]
	pos := 0
	for ri := range b.Runs {
		if local == pos {
			return ri
		}
		n := b.Runs[ri].Len()
		if local < pos+n {
			runes := []rune(b.Runs[ri].Text)
			head := b.Runs[ri].clone()
			tail := b.Runs[ri].clone()
			head.Text = string(runes[:local-pos])
			tail.Text = string(runes[local-pos:])
			b.Runs = slices.Replace(b.Runs, ri, ri+1, head, tail)
			return ri + 1
		}
		pos += n
	}
	return len(b.Runs)
}

// eachSpan resolves r to the run index range [i, j) of every block it
// covers, splitting runs at the boundaries.
func (t *txn) eachSpan(r Range, fn func(bi, i, j int)) {
	if r.Start == r.End {
		return
	}
	sb, sl := t.locate(r.Start, false)
	eb, el := t.locate(r.End, true)
	for bi := sb; bi <= eb; bi++ {
		from, to := 0, t.blocks[bi].Len()
		if bi == sb {
			from = sl
		}
		if bi == eb {
			to = el
		}
		i := t.split(bi, from)
		j := t.split(bi, to)
		fn(bi, i, j)
	}
}

func (o SetMark) apply(t *txn) error {
	t.eachSpan(o.Range, func(bi, i, j int) {
		runs := t.blocks[bi].Runs
		for k := i; k < j; k++ {
			runs[k].Marks = setMark(runs[k].Marks, o.Mark)
		}
	})
	return nil
}

func (o UnsetMark) apply(t *txn) error {
	t.eachSpan(o.Range, func(bi, i, j int) {
		runs := t.blocks[bi].Runs
		for k := i; k < j; k++ {
			runs[k].Marks = unsetMark(runs[k].Marks, o.Kind)
		}
	})
	return nil
}

func (o Replace) apply(t *txn) error {
	insert := make([]Run, 0, len(o.Runs))
	for _, r := range o.Runs {
		if r.Text != "" {
			insert = append(insert, r.clone())
		}
	}

	if o.Range.Start == o.Range.End {
		bi, local := t.locate(o.Range.Start, false)
		i := t.split(bi, local)
		t.blocks[bi].Runs = slices.Insert(t.blocks[bi].Runs, i, insert...)
		return nil
	}

	sb, sl := t.locate(o.Range.Start, false)
	eb, el := t.locate(o.Range.End, true)

	// Cut the tail off the last block first so the first block's indices stay put.
	tailAt := t.split(eb, el)
	tail := slices.Clone(t.blocks[eb].Runs[tailAt:])
	t.blocks[eb].Runs = t.blocks[eb].Runs[:tailAt]

	headAt := t.split(sb, sl)
	first := &t.blocks[sb]
	runs := append(slices.Clone(first.Runs[:headAt]), insert...)
	first.Runs = append(runs, tail...)

	if eb > sb {
		t.blocks = slices.Delete(t.blocks, sb+1, eb+1)
	}
	return nil
}

func (o InsertText) apply(t *txn) error {
	if o.At.Start != o.At.End {
		return fmt.Errorf("insert position must be an empty range")
	}
	if o.Text == "" {
		return nil
	}
	bi, local := t.locate(o.At.Start, false)
	i := t.split(bi, local)
	b := &t.blocks[bi]

	var marks []Mark
	if i > 0 {
		marks = b.Runs[i-1].FormattingMarks()
	}
	b.Runs = slices.Insert(b.Runs, i, Run{Text: o.Text, Marks: marks})
	return nil
}

func (o SplitBlock) apply(t *txn) error {
	if o.At.Start != o.At.End {
		return fmt.Errorf("split position must be an empty range")
	}
	bi, local := t.locate(o.At.Start, false)
	i := t.split(bi, local)
	b := t.blocks[bi]

	head := Block{Kind: b.Kind, Level: b.Level, Runs: append(slices.Clone(b.Runs[:i]), Run{Text: "\n"})}
	next := Block{Kind: BlockParagraph, Runs: slices.Clone(b.Runs[i:])}
	if b.Kind == BlockListItem || b.Kind == BlockQuote {
		next.Kind, next.Level = b.Kind, b.Level
	}
	t.blocks = slices.Replace(t.blocks, bi, bi+1, head, next)
	return nil
}
