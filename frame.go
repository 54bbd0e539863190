package htmd

import "golang.org/x/net/html/atom"

// BlockKind classifies an open element by the Markdown block it maps to.
type BlockKind uint8

const (
	// KindDocument is the implicit root frame.
	KindDocument BlockKind = iota
	// KindGeneric is any element without its own Markdown syntax. Its
	// children pass through.
	KindGeneric
	KindParagraph
	KindHeading
	KindUnorderedList
	KindOrderedList
	KindListItem
	KindBlockquote
	KindPreformatted
	KindTable
	KindTableRow
	KindTableCell
)

var blockKindNames = [...]string{
	KindDocument:      "Document",
	KindGeneric:       "Generic",
	KindParagraph:     "Paragraph",
	KindHeading:       "Heading",
	KindUnorderedList: "UnorderedList",
	KindOrderedList:   "OrderedList",
	KindListItem:      "ListItem",
	KindBlockquote:    "Blockquote",
	KindPreformatted:  "Preformatted",
	KindTable:         "Table",
	KindTableRow:      "TableRow",
	KindTableCell:     "TableCell",
}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "Unknown"
}

// Frame is one entry of the nesting stack. Plugins receive frames by pointer;
// a frame is only valid for the duration of the hook call and must not be
// modified.
type Frame struct {
	Tag  string
	Kind BlockKind
	// Level is the heading level for headings, the blockquote depth for
	// blockquotes and the list nesting depth for lists and list items.
	Level int
	// Start and Index track ordered list numbering. On a list item Index is
	// the item's own number.
	Start int
	Index int
	// Language is the info string of a preformatted block.
	Language string

	block         bool
	skip          bool
	hasChildren   bool
	marker        string
	markerPending bool
	indent        int
	table         int
}

// HasChildren reports whether the frame has emitted any content so far.
func (f *Frame) HasChildren() bool {
	return f.hasChildren
}

// Block reports whether the frame starts its own Markdown block.
func (f *Frame) Block() bool {
	return f.block
}

type inlineKind uint8

const (
	inlineStrong inlineKind = iota
	inlineEmphasis
	inlineStrike
	inlineLink
	inlineCode
)

// inlineMark is an open inline element. It belongs to the block frame that
// was on top when it opened.
type inlineMark struct {
	tag    string
	kind   inlineKind
	marker string
	href   string
	title  string
	frame  int
	// capture is the capture depth the opening marker is written at.
	capture int
	// open is set once the opening marker has been written.
	open bool
}

var inlineTags = map[atom.Atom]inlineKind{
	atom.Strong: inlineStrong,
	atom.B:      inlineStrong,
	atom.Em:     inlineEmphasis,
	atom.I:      inlineEmphasis,
	atom.Cite:   inlineEmphasis,
	atom.Dfn:    inlineEmphasis,
	atom.Del:    inlineStrike,
	atom.S:      inlineStrike,
	atom.Strike: inlineStrike,
	atom.A:      inlineLink,
	atom.Code:   inlineCode,
	atom.Kbd:    inlineCode,
	atom.Samp:   inlineCode,
	atom.Tt:     inlineCode,
}

var inlineMarkers = [...]string{
	inlineStrong:   "**",
	inlineEmphasis: "*",
	inlineStrike:   "~~",
	inlineLink:     "[",
	inlineCode:     "",
}

// genericBlocks start a new block but carry no Markdown syntax of their own.
var genericBlocks = map[atom.Atom]bool{
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Main:       true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Nav:        true,
	atom.Aside:      true,
	atom.Form:       true,
	atom.Fieldset:   true,
	atom.Figure:     true,
	atom.Figcaption: true,
	atom.Address:    true,
	atom.Details:    true,
	atom.Summary:    true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Dd:         true,
	atom.Center:     true,
	atom.Hgroup:     true,
	atom.Legend:     true,
	atom.Caption:    true,
	atom.Dialog:     true,
}

// transparentTags produce no frame at all; their children attach to the
// enclosing frame.
var transparentTags = map[atom.Atom]bool{
	atom.Html:  true,
	atom.Body:  true,
	atom.Thead: true,
	atom.Tbody: true,
	atom.Tfoot: true,
}

// suppressedTags never reach the emitter.
var suppressedTags = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Title:    true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Math:     true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Canvas:   true,
	atom.Select:   true,
	atom.Textarea: true,
	atom.Noembed:  true,
	atom.Noframes: true,
	atom.Button:   true,
	atom.Datalist: true,
}

var voidTags = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// impliesParagraphEnd lists start tags that close an open paragraph.
var impliesParagraphEnd = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Table:      true,
	atom.Hr:         true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Nav:        true,
	atom.Aside:      true,
	atom.Dl:         true,
	atom.Figure:     true,
	atom.Form:       true,
	atom.Details:    true,
	atom.Main:       true,
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// classify maps a start tag onto the frame it pushes.
func classify(a atom.Atom) (BlockKind, bool) {
	if level := headingLevel(a); level > 0 {
		return KindHeading, true
	}
	switch a {
	case atom.P:
		return KindParagraph, true
	case atom.Ul, atom.Menu:
		return KindUnorderedList, true
	case atom.Ol:
		return KindOrderedList, true
	case atom.Li:
		return KindListItem, true
	case atom.Blockquote:
		return KindBlockquote, true
	case atom.Pre, atom.Listing, atom.Xmp:
		return KindPreformatted, true
	case atom.Table:
		return KindTable, true
	case atom.Tr:
		return KindTableRow, true
	case atom.Td, atom.Th:
		return KindTableCell, true
	}
	return KindGeneric, genericBlocks[a]
}

func (k BlockKind) isList() bool {
	return k == KindUnorderedList || k == KindOrderedList
}
