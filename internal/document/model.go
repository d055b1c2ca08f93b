package document

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// MarkKind names a kind of inline mark.
type MarkKind string

const (
	MarkBold       MarkKind = "bold"
	MarkItalic     MarkKind = "italic"
	MarkCode       MarkKind = "code"
	MarkStrike     MarkKind = "strike"
	MarkLink       MarkKind = "link"
	MarkDeletion   MarkKind = "deletion"
	MarkInsertion  MarkKind = "insertion"
	MarkSuggestion MarkKind = "suggestion"
)

// IsTracking reports whether the kind records a tracked edit or a highlight
// rather than formatting.
func (k MarkKind) IsTracking() bool {
	return k == MarkDeletion || k == MarkInsertion || k == MarkSuggestion
}

// BlockKind is the structural role of a block.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockListItem  BlockKind = "list_item"
	BlockQuote     BlockKind = "blockquote"
	BlockCode      BlockKind = "code"
)

// Mark tags a run of text. A run carries at most one mark of each kind.
type Mark struct {
	Kind  MarkKind          `json:"kind"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// NewMark builds a mark from alternating key/value attribute pairs.
func NewMark(kind MarkKind, kv ...string) Mark {
	m := Mark{Kind: kind}
	if len(kv) > 1 {
		m.Attrs = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m.Attrs[kv[i]] = kv[i+1]
		}
	}
	return m
}

// Attr returns the named attribute or "".
func (m Mark) Attr(key string) string {
	return m.Attrs[key]
}

// Equal reports whether two marks have the same kind and attributes.
func (m Mark) Equal(o Mark) bool {
	return m.Kind == o.Kind && maps.Equal(m.Attrs, o.Attrs)
}

func (m Mark) clone() Mark {
	return Mark{Kind: m.Kind, Attrs: maps.Clone(m.Attrs)}
}

// Run is a span of text sharing one set of marks.
type Run struct {
	Text  string `json:"text"`
	Marks []Mark `json:"marks,omitempty"`
}

// NewRun builds a run with a canonical mark set.
func NewRun(text string, marks ...Mark) Run {
	r := Run{Text: text}
	for _, m := range marks {
		r.Marks = setMark(r.Marks, m)
	}
	return r
}

// Len returns the run length in runes.
func (r Run) Len() int {
	return utf8.RuneCountInString(r.Text)
}

// Mark returns the run's mark of the given kind.
func (r Run) Mark(kind MarkKind) (Mark, bool) {
	for _, m := range r.Marks {
		if m.Kind == kind {
			return m, true
		}
	}
	return Mark{}, false
}

// HasMark reports whether the run carries a mark of the given kind.
func (r Run) HasMark(kind MarkKind) bool {
	_, ok := r.Mark(kind)
	return ok
}

// WithoutMarks returns a copy of the run with the given mark kinds removed.
func (r Run) WithoutMarks(kinds ...MarkKind) Run {
	out := Run{Text: r.Text}
	for _, m := range r.Marks {
		if !slices.Contains(kinds, m.Kind) {
			out.Marks = append(out.Marks, m.clone())
		}
	}
	return out
}

// FormattingMarks returns the run's marks that are not tracking marks.
func (r Run) FormattingMarks() []Mark {
	var out []Mark
	for _, m := range r.Marks {
		if !m.Kind.IsTracking() {
			out = append(out, m.clone())
		}
	}
	return out
}

func (r Run) sameMarks(o Run) bool {
	return slices.EqualFunc(r.Marks, o.Marks, Mark.Equal)
}

func (r Run) clone() Run {
	out := Run{Text: r.Text}
	if r.Marks != nil {
		out.Marks = make([]Mark, len(r.Marks))
		for i, m := range r.Marks {
			out.Marks[i] = m.clone()
		}
	}
	return out
}

// setMark inserts m keeping marks sorted by kind, replacing a mark of the same kind.
func setMark(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	inserted := false
	for _, existing := range marks {
		if existing.Kind == m.Kind {
			continue
		}
		if !inserted && m.Kind < existing.Kind {
			out = append(out, m.clone())
			inserted = true
		}
		out = append(out, existing)
	}
	if !inserted {
		out = append(out, m.clone())
	}
	return out
}

func unsetMark(marks []Mark, kind MarkKind) []Mark {
	var out []Mark
	for _, m := range marks {
		if m.Kind != kind {
			out = append(out, m)
		}
	}
	return out
}

// Block is a structural container of runs.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	Runs  []Run     `json:"runs"`
}

// Text returns the concatenated run text of the block.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len returns the block length in runes.
func (b Block) Len() int {
	n := 0
	for _, r := range b.Runs {
		n += r.Len()
	}
	return n
}

func (b Block) clone() Block {
	out := Block{Kind: b.Kind, Level: b.Level, Runs: make([]Run, len(b.Runs))}
	for i, r := range b.Runs {
		out.Runs[i] = r.clone()
	}
	return out
}

// normalize merges adjacent runs with equal marks and drops empty runs.
func (b *Block) normalize() {
	out := b.Runs[:0]
	for _, r := range b.Runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameMarks(r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	b.Runs = out
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.clone()
	}
	return out
}
