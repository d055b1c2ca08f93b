// Package markup converts lightweight Markdown into styled text spans.
//
// Suggestion fragments returned by the analyzer may carry Markdown
// (e.g. **bold**) while the document keeps formatting as marks, so
// fragments are flattened with Plain before they are searched for.
package markup

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind is the structural role of a parsed block.
type BlockKind string

const (
	BlockParagraph  BlockKind = "paragraph"
	BlockHeading    BlockKind = "heading"
	BlockListItem   BlockKind = "list_item"
	BlockQuote      BlockKind = "blockquote"
	BlockCode       BlockKind = "code"
	BlockHorizontal BlockKind = "rule"
)

// Span is a run of text sharing one set of inline styles.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
	Strike bool
	Link   string // Destination, empty when the span is not a link
}

// Block is one parsed block with its inline spans.
type Block struct {
	Kind  BlockKind
	Level int // Heading level or list nesting depth
	Spans []Span
}

// Text returns the concatenated span text of the block.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// blockSyntax matches line prefixes that make goldmark build structure.
var blockSyntax = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}\s|>|[-+*]\s|\d+[.)]\s|` + "```" + `|~~~)`)

// HasMarkup reports whether s contains any Markdown syntax worth parsing.
func HasMarkup(s string) bool {
	return strings.ContainsAny(s, "*_`~[]<&\\") || blockSyntax.MatchString(s)
}

// Plain strips Markdown from s and returns the visible text, blocks joined
// by newlines. Text without Markdown syntax is returned unchanged.
func Plain(s string) string {
	if !HasMarkup(s) {
		return s
	}
	blocks := Parse(s)
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == BlockHorizontal {
			continue
		}
		parts = append(parts, b.Text())
	}
	return strings.Join(parts, "\n")
}

// Parse splits Markdown source into blocks of styled spans.
func Parse(s string) []Block {
	source := []byte(s)
	doc := md.Parser().Parse(text.NewReader(source))

	p := &parser{source: source}
	p.walkBlocks(doc, 0, false)
	return p.blocks
}

type parser struct {
	source []byte
	blocks []Block
}

type style struct {
	bold, italic, code, strike bool
	link                       string
}

func (p *parser) walkBlocks(n ast.Node, depth int, quoted bool) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			p.emit(Block{Kind: BlockHeading, Level: node.Level}, node)
		case *ast.Paragraph, *ast.TextBlock:
			switch {
			case quoted:
				p.emit(Block{Kind: BlockQuote, Level: depth}, node)
			case n.Kind() == ast.KindListItem:
				p.emit(Block{Kind: BlockListItem, Level: depth}, node)
			default:
				p.emit(Block{Kind: BlockParagraph}, node)
			}
		case *ast.List:
			p.walkBlocks(node, depth+1, quoted)
		case *ast.ListItem:
			p.walkBlocks(node, depth, quoted)
		case *ast.Blockquote:
			p.walkBlocks(node, depth, true)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			p.blocks = append(p.blocks, Block{
				Kind:  BlockCode,
				Spans: []Span{{Text: p.lines(node), Code: true}},
			})
		case *ast.ThematicBreak:
			p.blocks = append(p.blocks, Block{Kind: BlockHorizontal})
		case *ast.HTMLBlock:
			p.blocks = append(p.blocks, Block{
				Kind:  BlockParagraph,
				Spans: []Span{{Text: p.lines(node)}},
			})
		default:
			p.walkBlocks(node, depth, quoted)
		}
	}
}

func (p *parser) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(p.source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p *parser) emit(b Block, n ast.Node) {
	p.inline(n, style{}, &b.Spans)
	b.Spans = mergeSpans(b.Spans)
	p.blocks = append(p.blocks, b)
}

func (p *parser) inline(n ast.Node, st style, out *[]Span) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			*out = append(*out, st.span(string(node.Segment.Value(p.source))))
			if node.SoftLineBreak() || node.HardLineBreak() {
				*out = append(*out, st.span("\n"))
			}
		case *ast.String:
			*out = append(*out, st.span(string(node.Value)))
		case *ast.CodeSpan:
			inner := st
			inner.code = true
			p.inline(node, inner, out)
		case *ast.Emphasis:
			inner := st
			if node.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			p.inline(node, inner, out)
		case *east.Strikethrough:
			inner := st
			inner.strike = true
			p.inline(node, inner, out)
		case *ast.Link:
			inner := st
			inner.link = string(node.Destination)
			p.inline(node, inner, out)
		case *ast.AutoLink:
			inner := st
			inner.link = string(node.URL(p.source))
			*out = append(*out, inner.span(string(node.Label(p.source))))
		case *ast.Image:
			p.inline(node, st, out)
		case *ast.RawHTML:
			segs := node.Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				*out = append(*out, st.span(string(seg.Value(p.source))))
			}
		default:
			p.inline(node, st, out)
		}
	}
}

func (st style) span(s string) Span {
	return Span{Text: s, Bold: st.bold, Italic: st.italic, Code: st.code, Strike: st.strike, Link: st.link}
}

func (s Span) sameStyle(o Span) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Code == o.Code && s.Strike == o.Strike && s.Link == o.Link
}

func mergeSpans(in []Span) []Span {
	out := make([]Span, 0, len(in))
	for _, s := range in {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameStyle(s) {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
