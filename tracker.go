package htmd

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/net/html/atom"
)

// converter runs one conversion session: it tracks nesting, consults the
// plugin pipeline and drives the emitter. It is reused through a pool.
type converter struct {
	s        *session
	tok      tokenizer
	frames   []Frame
	marks    []inlineMark
	captures []capture
	tables   []tableState
	out      []byte

	pendingBreak int
	hardBreak    bool
	strictBreak  bool
	pendingSpace bool
	atLineStart  bool
	lineEmpty    bool
	escapeHead   bool
	wrote        bool
	lastQuote    int

	quoteDepth   int
	listDepth    int
	skipDepth    int
	preDepth     int
	headingDepth int
	linkDepth    int
	ready        bool

	frameArr   [64]Frame
	markArr    [32]inlineMark
	captureArr [8]capture
	outArr     [4096]byte
	readBufArr [4096]byte
}

func (c *converter) reset(s *session) {
	c.s = s
	c.tok.reset(s.logger)
	c.frameArr[0] = Frame{Kind: KindDocument, block: true}
	c.frames = c.frameArr[:1]
	c.marks = c.markArr[:0]
	c.captures = c.captureArr[:0]
	c.tables = c.tables[:0]
	c.out = c.outArr[:0]
	c.pendingBreak = 0
	c.hardBreak = false
	c.strictBreak = false
	c.pendingSpace = false
	c.atLineStart = true
	c.lineEmpty = true
	c.escapeHead = true
	c.wrote = false
	c.lastQuote = 0
	c.quoteDepth = 0
	c.listDepth = 0
	c.skipDepth = 0
	c.preDepth = 0
	c.headingDepth = 0
	c.linkDepth = 0
	c.ready = false
}

// release drops references held by a finished session.
func (c *converter) release() {
	c.s = nil
	c.tok.log = nil
	for i := range c.frames {
		c.frames[i] = Frame{}
	}
	for i := range c.marks {
		c.marks[i] = inlineMark{}
	}
	c.tables = c.tables[:0]
}

func (c *converter) debug(msg string, args ...any) {
	c.tok.debug(msg, args...)
}

func (c *converter) top() *Frame {
	return &c.frames[len(c.frames)-1]
}

// topLevel reports whether only the document and generic containers are open.
func (c *converter) topLevel() bool {
	if len(c.captures) > 0 {
		return false
	}
	for i := 1; i < len(c.frames); i++ {
		if f := &c.frames[i]; f.skip || f.Kind != KindGeneric {
			return false
		}
	}
	return true
}

func (c *converter) markReady() {
	if len(c.out) > 0 && c.topLevel() {
		c.ready = true
	}
}

func (c *converter) handle(tok Token) {
	switch tok.Kind {
	case tokenText:
		c.text(tok.Data)
	case tokenTagOpen:
		c.startTag(tok)
	case tokenTagClose:
		c.endTag(tok)
	}
}

// finish closes everything still open at end of input.
func (c *converter) finish() {
	for len(c.frames) > 1 {
		c.popFrame()
	}
	c.closeMarks(0)
}

func (c *converter) text(s string) {
	if c.skipDepth > 0 || s == "" {
		return
	}
	s = sanitizeText(s)
	if s == "" {
		return
	}
	d := c.s.pipeline.text(c.top(), s)
	if d.IsSkip() {
		return
	}
	if text, ok := d.Text(); ok {
		c.writeRaw(text)
		return
	}
	if c.preDepth > 0 {
		c.appendRaw(s)
		return
	}
	if k := c.top().Kind; (k == KindTable || k == KindTableRow) && isBlank(s) {
		return
	}
	c.writeText(s)
}

func (c *converter) startTag(tok Token) {
	a := tok.atom
	leaf := voidTags[a] || tok.SelfClosing
	if c.skipDepth > 0 {
		if !leaf {
			c.pushSkip(tok.Name)
		}
		return
	}
	if transparentTags[a] {
		return
	}
	if suppressedTags[a] {
		if !leaf {
			c.pushSkip(tok.Name)
		}
		return
	}
	if c.preDepth == 0 {
		c.implyEnd(a)
	}
	d := c.s.pipeline.enter(c.top(), tok.Name, tok.Attrs)
	if d.IsSkip() {
		if !leaf {
			c.pushSkip(tok.Name)
		}
		return
	}
	if text, ok := d.Text(); ok {
		c.writeRaw(text)
		if !leaf {
			c.pushSkip(tok.Name)
		}
		return
	}
	if c.preDepth > 0 {
		c.preTag(tok)
		return
	}
	if c.inCode() {
		if a == atom.Br {
			c.space()
		}
		return
	}
	if kind, ok := inlineTags[a]; ok {
		if !tok.SelfClosing {
			c.openInline(tok, kind)
		}
		return
	}
	switch a {
	case atom.Br:
		c.lineBreak()
		return
	case atom.Hr:
		c.rule()
		return
	case atom.Img:
		c.image(tok.Attrs)
		return
	case atom.Input:
		c.checkbox(tok.Attrs)
		return
	}
	if voidTags[a] {
		return
	}
	kind, block := classify(a)
	c.openFrame(tok, kind, block)
	if tok.SelfClosing {
		c.popFrame()
	}
}

// preTag handles markup inside preformatted text, which is kept raw.
func (c *converter) preTag(tok Token) {
	switch tok.atom {
	case atom.Br:
		c.appendRaw("\n")
	case atom.Code, atom.Samp, atom.Kbd:
		if f := c.top(); f.Kind == KindPreformatted && f.Language == "" {
			f.Language = codeLanguage(tok.Attrs)
		}
	}
}

func (c *converter) endTag(tok Token) {
	a := tok.atom
	if c.skipDepth == 0 {
		if a == atom.Br {
			c.startTag(Token{Kind: tokenTagOpen, Name: tok.Name, atom: a})
			return
		}
		if transparentTags[a] {
			return
		}
		if c.preDepth > 0 && c.top().Tag != tok.Name {
			return
		}
		if _, ok := inlineTags[a]; ok {
			c.closeInline(tok.Name)
			return
		}
	}
	for i := len(c.frames) - 1; i > 0; i-- {
		if c.frames[i].Tag == tok.Name {
			c.popTo(i)
			return
		}
	}
	if headingLevel(a) > 0 && c.skipDepth == 0 {
		if i := c.nearest(KindHeading); i > 0 {
			c.popTo(i)
			return
		}
	}
	c.debug("stray end tag", "tag", tok.Name)
}

func (c *converter) pushSkip(tag string) {
	c.frames = append(c.frames, Frame{Tag: tag, Kind: KindGeneric, skip: true})
	c.skipDepth++
}

// popTo closes frames until the stack has depth n.
func (c *converter) popTo(n int) {
	for len(c.frames) > n {
		c.popFrame()
	}
}

// implyEnd closes elements that an opening tag ends implicitly.
func (c *converter) implyEnd(a atom.Atom) {
	switch a {
	case atom.Li:
		c.closeNearest(func(f *Frame) (bool, bool) {
			switch f.Kind {
			case KindListItem:
				return true, true
			case KindGeneric, KindParagraph:
				return false, true
			}
			return false, false
		})
	case atom.Dt, atom.Dd:
		c.closeNearest(func(f *Frame) (bool, bool) {
			if f.Tag == "dt" || f.Tag == "dd" {
				return true, true
			}
			return false, !f.block || f.Kind == KindParagraph
		})
	case atom.Tr:
		if len(c.tables) == 0 {
			break
		}
		c.closeNearest(func(f *Frame) (bool, bool) {
			switch f.Kind {
			case KindTableRow:
				return true, true
			case KindTable:
				return false, false
			}
			return false, true
		})
	case atom.Td, atom.Th:
		if len(c.tables) == 0 {
			break
		}
		c.closeNearest(func(f *Frame) (bool, bool) {
			switch f.Kind {
			case KindTableCell:
				return true, true
			case KindTableRow, KindTable:
				return false, false
			}
			return false, true
		})
	}
	if headingLevel(a) > 0 {
		c.closeNearest(func(f *Frame) (bool, bool) {
			return f.Kind == KindHeading, !f.block
		})
	}
	if impliesParagraphEnd[a] || a == atom.Li || a == atom.Dt || a == atom.Dd {
		c.closeNearest(func(f *Frame) (bool, bool) {
			return f.Kind == KindParagraph, !f.block
		})
	}
}

// closeNearest walks down the stack and closes the first frame match accepts.
// The walk stops at a frame match neither accepts nor passes through.
func (c *converter) closeNearest(match func(*Frame) (hit, through bool)) {
	for i := len(c.frames) - 1; i > 0; i-- {
		f := &c.frames[i]
		if f.skip {
			return
		}
		hit, through := match(f)
		if hit {
			c.popTo(i)
			return
		}
		if !through {
			return
		}
	}
}

func (c *converter) nearest(kind BlockKind) int {
	for i := len(c.frames) - 1; i > 0; i-- {
		if c.frames[i].Kind == kind {
			return i
		}
	}
	return -1
}

func (c *converter) nearestList() int {
	for i := len(c.frames) - 1; i > 0; i-- {
		if c.frames[i].Kind.isList() {
			return i
		}
	}
	return -1
}

func (c *converter) openFrame(tok Token, kind BlockKind, block bool) {
	if (kind == KindTableRow || kind == KindTableCell) && len(c.tables) == 0 {
		kind, block = KindGeneric, true
	}
	if kind == KindTableCell && c.top().Kind == KindTable {
		c.openFrame(Token{Kind: tokenTagOpen, Name: "tr", atom: atom.Tr}, KindTableRow, true)
	}
	if block {
		c.markReady()
	}
	parent := c.top()
	f := Frame{Tag: tok.Name, Kind: kind, block: block}
	switch kind {
	case KindParagraph, KindBlockquote, KindPreformatted, KindTable:
		c.blockBreak(parent, 2)
	case KindGeneric:
		if block {
			c.blockBreak(parent, 2)
		}
	case KindHeading:
		c.blockBreak(parent, 2)
		f.Level = headingLevel(tok.atom)
		f.marker = hashStringsWithSpace[f.Level]
		f.markerPending = true
		c.headingDepth++
	case KindUnorderedList, KindOrderedList:
		switch {
		case parent.Kind == KindListItem:
			c.blockBreak(parent, 1)
		case parent.Kind.isList():
			c.blockBreak(parent, 1)
			f.indent = 2
			if parent.Kind == KindOrderedList {
				f.indent = len(orderedMarker(max(parent.Index-1, parent.Start)))
			}
		default:
			c.blockBreak(parent, 2)
		}
		c.listDepth++
		f.Level = c.listDepth
		if kind == KindOrderedList {
			f.Start = 1
			if n, ok := attrInt(tok.Attrs, "start"); ok {
				f.Start = n
			}
			f.Index = f.Start
		}
	case KindListItem:
		f.marker = "- "
		f.Level = 1
		if i := c.nearestList(); i > 0 {
			list := &c.frames[i]
			f.Level = list.Level
			if list.Kind == KindOrderedList {
				n := list.Index
				if v, ok := attrInt(tok.Attrs, "value"); ok {
					n = v
				}
				list.Index = min(n+1, maxListNumber)
				f.Index = n
				f.marker = orderedMarker(n)
			}
		}
		f.markerPending = true
		c.breakAtLeast(1)
	case KindTableRow:
		t := &c.tables[len(c.tables)-1]
		t.rows = append(t.rows, nil)
	}
	switch kind {
	case KindBlockquote:
		c.quoteDepth++
		f.Level = c.quoteDepth
	case KindPreformatted:
		c.preDepth++
		f.Language = codeLanguage(tok.Attrs)
		c.pushCapture(captureRaw)
	case KindTable:
		c.tables = append(c.tables, tableState{})
		f.table = len(c.tables)
	case KindTableCell:
		c.pushCapture(captureCell)
	}
	c.frames = append(c.frames, f)
}

func (c *converter) popFrame() {
	n := len(c.frames) - 1
	if n <= 0 {
		return
	}
	f := &c.frames[n]
	if f.skip {
		c.skipDepth--
		c.frames = c.frames[:n]
		return
	}
	d := Continue
	if f.hasChildren {
		d = c.s.pipeline.exit(f, f.Tag)
	}
	c.closeMarks(n)
	replace, replaced := d.Text()
	suppress := d.IsSkip() || replaced
	switch f.Kind {
	case KindPreformatted:
		body := c.popCapture()
		c.preDepth--
		if !suppress {
			c.writeCodeBlock(body, f.Language)
		}
	case KindTableCell:
		cell := c.popCapture()
		if replaced {
			cell, replaced = replace, false
		}
		if !d.IsSkip() && len(c.tables) > 0 {
			c.tables[len(c.tables)-1].addCell(cell)
		}
	case KindTable:
		var t tableState
		if f.table > 0 && f.table <= len(c.tables) {
			t = c.tables[f.table-1]
			c.tables = c.tables[:f.table-1]
		}
		if !suppress {
			c.writeTable(t.rows)
		}
	}
	if replaced {
		c.writeRaw(replace)
	}
	switch f.Kind {
	case KindHeading:
		c.headingDepth--
	case KindBlockquote:
		c.quoteDepth--
	case KindUnorderedList, KindOrderedList:
		c.listDepth--
	}
	if f.block && f.hasChildren {
		switch f.Kind {
		case KindListItem:
			c.setBreak(1)
		case KindTableRow, KindTableCell:
		case KindUnorderedList, KindOrderedList:
			if p := c.frames[n-1].Kind; p == KindListItem || p.isList() {
				c.setBreak(1)
			} else {
				c.setBreak(2)
			}
		default:
			c.setBreak(2)
		}
	}
	block := f.block
	if f.hasChildren {
		c.frames[n-1].hasChildren = true
	}
	c.frames[n] = Frame{}
	c.frames = c.frames[:n]
	if block {
		c.markReady()
	}
}

func (c *converter) openInline(tok Token, kind inlineKind) {
	top := c.blockIndex()
	m := inlineMark{
		tag:     tok.Name,
		kind:    kind,
		marker:  inlineMarkers[kind],
		frame:   top,
		capture: len(c.captures),
	}
	switch kind {
	case inlineLink:
		for j := len(c.marks) - 1; j >= 0 && c.marks[j].frame == top; j-- {
			if c.marks[j].kind == inlineLink {
				c.debug("nested link", "tag", tok.Name)
				c.closeMark(j)
				break
			}
		}
		href := strings.TrimSpace(tok.Attrs.Value("href"))
		if href == "" || isScriptURL(href) {
			m.marker = ""
		} else {
			m.href = c.resolveURL(href)
			m.title = tok.Attrs.Value("title")
			c.linkDepth++
		}
	case inlineCode:
		c.pushCapture(captureCode)
	}
	c.marks = append(c.marks, m)
}

// blockIndex returns the stack index of the nearest block frame, which owns
// the inline marks opened inside it.
func (c *converter) blockIndex() int {
	for i := len(c.frames) - 1; i > 0; i-- {
		if c.frames[i].block {
			return i
		}
	}
	return 0
}

// closeInline closes the most recent mark with the tag on the current block
// frame. Other marks stay open.
func (c *converter) closeInline(tag string) {
	top := c.blockIndex()
	for j := len(c.marks) - 1; j >= 0 && c.marks[j].frame == top; j-- {
		if m := &c.marks[j]; m.tag == tag {
			depth := m.capture
			if m.kind == inlineCode {
				depth++
			}
			if depth < len(c.captures) {
				// Closing here would write into a code span; the mark
				// closes with its block instead.
				c.debug("inline close inside code span", "tag", tag)
				return
			}
			if j != len(c.marks)-1 {
				c.debug("overlapping inline close", "tag", tag)
			}
			c.closeMark(j)
			return
		}
	}
	c.debug("stray end tag", "tag", tag)
}

// closeMarks closes the marks of frame i in LIFO order.
func (c *converter) closeMarks(i int) {
	for len(c.marks) > 0 && c.marks[len(c.marks)-1].frame >= i {
		c.closeMark(len(c.marks) - 1)
	}
}

func (c *converter) closeMark(j int) {
	m := c.marks[j]
	c.marks = append(c.marks[:j], c.marks[j+1:]...)
	frame := &c.frames[m.frame]
	switch m.kind {
	case inlineCode:
		body := c.popCapture()
		if body == "" {
			return
		}
		d := c.s.pipeline.exit(frame, m.tag)
		if d.IsSkip() {
			return
		}
		if text, ok := d.Text(); ok {
			c.writeRaw(text)
			return
		}
		c.writeCodeSpan(body)
	case inlineLink:
		if m.marker == "" {
			return
		}
		c.linkDepth--
		if !m.open {
			return
		}
		d := c.s.pipeline.exit(frame, m.tag)
		if d.IsSkip() {
			return
		}
		if text, ok := d.Text(); ok {
			c.writeMarkup(text)
			return
		}
		c.writeLinkTail(m.href, m.title)
	default:
		if !m.open {
			return
		}
		d := c.s.pipeline.exit(frame, m.tag)
		if d.IsSkip() {
			return
		}
		if text, ok := d.Text(); ok {
			c.writeMarkup(text)
			return
		}
		c.writeMarkup(m.marker)
	}
}

// flushMarks writes the opening markers still pending on the current frame.
func (c *converter) flushMarks() {
	top := c.blockIndex()
	depth := len(c.captures)
	j := len(c.marks)
	for j > 0 && c.marks[j-1].frame == top {
		j--
	}
	for ; j < len(c.marks); j++ {
		m := &c.marks[j]
		if m.open || m.marker == "" || m.capture != depth {
			continue
		}
		m.open = true
		c.writeMarkup(m.marker)
		c.lineEmpty = false
		c.escapeHead = false
	}
}

func (c *converter) inCode() bool {
	n := len(c.captures)
	return n > 0 && c.captures[n-1].kind == captureCode
}

func (c *converter) checkbox(attrs Attributes) {
	if !strings.EqualFold(attrs.Value("type"), "checkbox") || c.nearest(KindListItem) < 0 {
		return
	}
	if attrs.Has("checked") {
		c.writeRaw("[x]")
	} else {
		c.writeRaw("[ ]")
	}
	c.space()
}

// maxListNumber is the largest ordered list number CommonMark accepts.
const maxListNumber = 999_999_999

// attrInt parses a non-negative list number, saturating at maxListNumber.
func attrInt(attrs Attributes, key string) (int, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(v, "-") {
		return maxListNumber, true
	}
	if err != nil || n < 0 {
		return 0, false
	}
	return min(n, maxListNumber), true
}

// codeLanguage extracts the info string from language-* or lang-* classes.
func codeLanguage(attrs Attributes) string {
	for _, class := range strings.Fields(attrs.Value("class")) {
		if lang, ok := strings.CutPrefix(class, "language-"); ok && lang != "" {
			return lang
		}
		if lang, ok := strings.CutPrefix(class, "lang-"); ok && lang != "" {
			return lang
		}
	}
	return ""
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			return false
		}
	}
	return true
}
