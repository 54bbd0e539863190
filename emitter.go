package htmd

import (
	"strconv"
	"strings"
)

var hashStringsWithSpace = [...]string{
	"",
	"# ",
	"## ",
	"### ",
	"#### ",
	"##### ",
	"###### ",
}

var spaceString = strings.Repeat(" ", 256)

var backtickString = strings.Repeat("`", 64)

const maxOrderedMarker = 1024

var orderedMarkerDot = func() [maxOrderedMarker + 1]string {
	var out [maxOrderedMarker + 1]string
	for i := 0; i <= maxOrderedMarker; i++ {
		out[i] = strconv.Itoa(i) + ". "
	}
	return out
}()

func orderedMarker(n int) string {
	if n >= 0 && n <= maxOrderedMarker {
		return orderedMarkerDot[n]
	}
	return strconv.Itoa(n) + ". "
}

type captureKind uint8

const (
	captureCode captureKind = iota
	captureCell
	captureRaw
)

// capture collects inline output that is rewritten before it reaches the
// main buffer: code spans, table cells and preformatted text.
type capture struct {
	kind         captureKind
	buf          []byte
	pendingSpace bool
}

func (c *converter) pushCapture(kind captureKind) {
	n := len(c.captures)
	if n < cap(c.captures) {
		c.captures = c.captures[:n+1]
		cp := &c.captures[n]
		cp.kind = kind
		cp.buf = cp.buf[:0]
		cp.pendingSpace = false
		return
	}
	c.captures = append(c.captures, capture{kind: kind})
}

func (c *converter) popCapture() string {
	n := len(c.captures)
	if n == 0 {
		return ""
	}
	cp := &c.captures[n-1]
	s := string(cp.buf)
	cp.buf = cp.buf[:0]
	c.captures = c.captures[:n-1]
	return s
}

// sink returns the buffer inline output currently goes to.
func (c *converter) sink() *[]byte {
	if n := len(c.captures); n > 0 {
		return &c.captures[n-1].buf
	}
	return &c.out
}

func (c *converter) space() {
	if n := len(c.captures); n > 0 {
		c.captures[n-1].pendingSpace = true
		return
	}
	c.pendingSpace = true
}

// breakAtLeast requests n line breaks before the next content.
func (c *converter) breakAtLeast(n int) {
	if len(c.captures) > 0 {
		c.space()
		return
	}
	if n > c.pendingBreak {
		c.pendingBreak = n
		if n > 1 {
			c.hardBreak = false
		}
	}
}

// blockBreak separates a new block from earlier content of its parent.
func (c *converter) blockBreak(parent *Frame, n int) {
	if parent.hasChildren {
		c.breakAtLeast(n)
	}
}

// setBreak replaces the pending break when a block closes.
func (c *converter) setBreak(n int) {
	if len(c.captures) > 0 {
		c.space()
		return
	}
	c.pendingBreak = n
	c.hardBreak = false
}

// materialize writes the pending break and the prefix of a new line.
func (c *converter) materialize() {
	if c.pendingBreak > 0 && c.wrote {
		n := c.pendingBreak
		if n > 1 && min(c.lastQuote, c.quoteDepth) > 0 {
			n = 1
			if c.strictBreak {
				c.out = append(c.out, '\n')
				c.writePrefix(false)
				c.out = trimTrailingSpaces(c.out)
			}
		}
		if n == 1 && c.hardBreak && !c.lineEmpty {
			c.out = append(c.out, "  "...)
		}
		for i := 0; i < n; i++ {
			c.out = append(c.out, '\n')
		}
		c.atLineStart = true
		c.pendingSpace = false
	}
	c.pendingBreak = 0
	c.hardBreak = false
	c.strictBreak = false
	if c.atLineStart {
		c.atLineStart = false
		c.lineEmpty = true
		c.escapeHead = true
		c.pendingSpace = false
		c.writePrefix(true)
	}
}

// writePrefix writes the blockquote and list prefix of the current line.
// With consume set, pending list item and heading markers are written and
// cleared; otherwise list items contribute their continuation indent.
func (c *converter) writePrefix(consume bool) {
	for i := 1; i < len(c.frames); i++ {
		f := &c.frames[i]
		switch f.Kind {
		case KindBlockquote:
			c.out = append(c.out, "> "...)
		case KindListItem:
			if f.markerPending && consume {
				c.out = append(c.out, f.marker...)
				f.markerPending = false
				continue
			}
			c.out = appendSpaces(c.out, len(f.marker))
		case KindUnorderedList, KindOrderedList:
			c.out = appendSpaces(c.out, f.indent)
		case KindHeading:
			if f.markerPending && consume {
				c.out = append(c.out, f.marker...)
				f.markerPending = false
				c.escapeHead = false
			}
		}
	}
}

// beginContent prepares the sink for inline content: pending break, line
// prefix, collapsed space and queued opening markers. It reports whether the
// content starts a line where block syntax must be escaped.
func (c *converter) beginContent() bool {
	c.top().hasChildren = true
	if n := len(c.captures); n > 0 {
		cp := &c.captures[n-1]
		if cp.pendingSpace && len(cp.buf) > 0 {
			cp.buf = append(cp.buf, ' ')
		}
		cp.pendingSpace = false
		c.flushMarks()
		return false
	}
	c.materialize()
	if c.pendingSpace && !c.lineEmpty {
		c.out = append(c.out, ' ')
	}
	c.pendingSpace = false
	c.flushMarks()
	head := c.escapeHead
	c.lineWritten()
	return head
}

func (c *converter) lineWritten() {
	c.wrote = true
	c.lineEmpty = false
	c.escapeHead = false
	c.lastQuote = c.quoteDepth
	c.top().hasChildren = true
}

// beginLine starts one line of a block that is rendered as a whole.
func (c *converter) beginLine(first bool) {
	if first {
		c.pendingSpace = false
		c.materialize()
		return
	}
	c.out = append(c.out, '\n')
	c.writePrefix(false)
}

func (c *converter) writeText(s string) {
	for len(s) > 0 {
		i := 0
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i > 0 {
			c.space()
			s = s[i:]
			continue
		}
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		c.writeWord(s[:i])
		s = s[i:]
	}
}

func (c *converter) writeWord(w string) {
	head := c.beginContent()
	mode := c.escapeMode()
	if head && mode&escapeInline != 0 {
		mode |= escapeLineStart
	}
	dst := c.sink()
	*dst = appendEscaped(*dst, w, mode)
}

func (c *converter) escapeMode() escapeMode {
	n := len(c.captures)
	if n > 0 && c.captures[n-1].kind == captureCode {
		return 0
	}
	var mode escapeMode
	if c.headingDepth == 0 {
		mode = escapeInline
	}
	if n > 0 {
		mode |= escapePipe
	}
	if c.linkDepth > 0 {
		mode |= escapeBracket
	}
	return mode
}

// writeRaw emits already formatted Markdown as inline content.
func (c *converter) writeRaw(s string) {
	if s == "" {
		return
	}
	c.beginContent()
	dst := c.sink()
	*dst = append(*dst, s...)
}

// writeMarkup appends closing syntax directly after the preceding content.
func (c *converter) writeMarkup(s string) {
	dst := c.sink()
	*dst = append(*dst, s...)
}

// appendRaw adds preformatted text to the open code block.
func (c *converter) appendRaw(s string) {
	c.top().hasChildren = true
	dst := c.sink()
	*dst = append(*dst, s...)
}

func (c *converter) lineBreak() {
	if len(c.captures) > 0 || c.headingDepth > 0 {
		c.space()
		return
	}
	switch {
	case c.pendingBreak == 0:
		c.pendingBreak = 1
		c.hardBreak = true
	case c.pendingBreak == 1 && c.hardBreak:
		c.pendingBreak = 2
		c.hardBreak = false
	}
	c.pendingSpace = false
}

func (c *converter) rule() {
	if len(c.captures) > 0 || c.headingDepth > 0 {
		c.space()
		return
	}
	c.breakAtLeast(2)
	c.strictBreak = true
	c.beginLine(true)
	c.out = append(c.out, "---"...)
	c.lineWritten()
	c.setBreak(2)
	c.strictBreak = true
	c.markReady()
}

func (c *converter) image(attrs Attributes) {
	src := strings.TrimSpace(attrs.Value("src"))
	if src == "" {
		src = strings.TrimSpace(attrs.Value("data-src"))
	}
	if src == "" || isScriptURL(src) {
		return
	}
	c.beginContent()
	dst := c.sink()
	b := append(*dst, "!["...)
	b = appendAlt(b, attrs.Value("alt"))
	b = append(b, "]("...)
	b = appendDestination(b, c.resolveURL(src))
	b = appendTitle(b, attrs.Value("title"))
	*dst = append(b, ')')
}

func (c *converter) writeLinkTail(href, title string) {
	dst := c.sink()
	b := append(*dst, "]("...)
	b = appendDestination(b, href)
	b = appendTitle(b, title)
	*dst = append(b, ')')
}

func (c *converter) writeCodeSpan(body string) {
	c.beginContent()
	dst := c.sink()
	*dst = appendCodeSpan(*dst, body)
}

func (c *converter) writeCodeBlock(body, lang string) {
	body = normalizeNewlines(body)
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimRight(body, "\n")
	if isBlank(body) {
		return
	}
	if len(c.captures) > 0 {
		c.writeCodeSpan(strings.Join(strings.Fields(body), " "))
		return
	}
	fence := codeFence(body)
	c.beginLine(true)
	c.out = append(c.out, fence...)
	c.out = append(c.out, lang...)
	c.lineWritten()
	for len(body) > 0 {
		line := body
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			line, body = body[:i], body[i+1:]
		} else {
			body = ""
		}
		c.beginLine(false)
		if line == "" {
			c.out = trimTrailingSpaces(c.out)
		}
		c.out = append(c.out, line...)
	}
	c.beginLine(false)
	c.out = append(c.out, fence...)
	c.lineWritten()
}

func (c *converter) writeTable(rows [][]string) {
	lines := renderTable(rows)
	if len(lines) == 0 {
		return
	}
	if len(c.captures) > 0 {
		for _, row := range rows {
			for _, cell := range row {
				if cell != "" {
					c.writeRaw(cell)
					c.space()
				}
			}
		}
		return
	}
	c.strictBreak = true
	for i, line := range lines {
		c.beginLine(i == 0)
		c.out = append(c.out, line...)
	}
	c.lineWritten()
	// Content after the table needs a blank line even inside a quote, or
	// it continues the table.
	c.strictBreak = true
}

func appendSpaces(b []byte, n int) []byte {
	for n > 0 {
		k := min(n, len(spaceString))
		b = append(b, spaceString[:k]...)
		n -= k
	}
	return b
}

func appendBackticks(b []byte, n int) []byte {
	for n > 0 {
		k := min(n, len(backtickString))
		b = append(b, backtickString[:k]...)
		n -= k
	}
	return b
}

func trimTrailingSpaces(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	return b
}

func normalizeNewlines(s string) string {
	if strings.IndexByte(s, '\r') < 0 {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// longestRun returns the longest run of ch in s.
func longestRun(s string, ch byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}

func codeFence(body string) string {
	n := max(3, longestRun(body, '`')+1)
	return string(appendBackticks(nil, n))
}

func appendCodeSpan(b []byte, body string) []byte {
	n := longestRun(body, '`') + 1
	pad := body[0] == '`' || body[len(body)-1] == '`'
	b = appendBackticks(b, n)
	if pad {
		b = append(b, ' ')
	}
	b = append(b, body...)
	if pad {
		b = append(b, ' ')
	}
	return appendBackticks(b, n)
}
