package htmd

import (
	"bytes"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// rawTextTags switch the tokenizer into raw text mode until the matching
// end tag. Only textarea and title content has entities decoded.
var rawTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"title":    true,
	"xmp":      true,
	"noembed":  true,
	"noframes": true,
}

var (
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	cdataOpen    = []byte("<![CDATA[")
	cdataClose   = []byte("]]>")
)

// tokenizer scans buffered HTML bytes into tokens. next reports false when
// the buffered input cannot yet decide the next token; with eof set it always
// produces a token while input remains. The token sequence is therefore the
// same for any split of the input into chunks.
type tokenizer struct {
	buf      []byte
	pos      int
	consumed int
	rawTag   string
	log      *slog.Logger

	bufArr [4096]byte
}

func (z *tokenizer) reset(log *slog.Logger) {
	z.buf = z.bufArr[:0]
	z.pos = 0
	z.consumed = 0
	z.rawTag = ""
	z.log = log
}

// write appends input, compacting already consumed bytes first.
func (z *tokenizer) write(p []byte) {
	if z.pos > 0 {
		n := copy(z.buf, z.buf[z.pos:])
		z.buf = z.buf[:n]
		z.pos = 0
	}
	z.buf = append(z.buf, p...)
}

func (z *tokenizer) buffered() int {
	return len(z.buf) - z.pos
}

func (z *tokenizer) advance(n int) {
	z.pos += n
	z.consumed += n
}

func (z *tokenizer) debug(msg string, args ...any) {
	if z.log == nil {
		return
	}
	z.log.Debug(msg, append(args, "offset", z.consumed)...)
}

func (z *tokenizer) next(eof bool) (Token, bool) {
	for z.pos < len(z.buf) {
		b := z.buf[z.pos:]
		if z.rawTag != "" {
			tok, n, ok := z.scanRawText(b, eof)
			if !ok {
				return Token{}, false
			}
			if n == 0 {
				continue
			}
			z.advance(n)
			return tok, true
		}
		if b[0] != '<' {
			return z.emit(z.scanText(b, eof))
		}
		if len(b) < 2 {
			if !eof {
				return Token{}, false
			}
			return z.emit(textToken(b), 1, true)
		}
		var (
			tok Token
			n   int
			ok  bool
		)
		switch c := b[1]; {
		case isASCIIAlpha(c):
			tok, n, ok = z.scanStartTag(b, eof)
		case c == '/':
			tok, n, ok = z.scanEndTag(b, eof)
		case c == '!':
			tok, n, ok = z.scanMarkupDecl(b, eof)
		case c == '?':
			tok, n, ok = z.scanBogus(b, 2, eof)
			tok.Kind = tokenDoctype
		default:
			tok, n, ok = z.scanText(b, eof)
		}
		if !ok {
			return Token{}, false
		}
		if n == 0 {
			continue
		}
		z.advance(n)
		if tok.Kind == tokenTagOpen && !tok.SelfClosing && rawTextTags[tok.Name] {
			z.rawTag = tok.Name
		}
		return tok, true
	}
	return Token{}, false
}

func (z *tokenizer) emit(tok Token, n int, ok bool) (Token, bool) {
	if !ok {
		return Token{}, false
	}
	z.advance(n)
	return tok, true
}

func textToken(raw []byte) Token {
	return Token{Kind: tokenText, Data: html.UnescapeString(string(raw))}
}

// scanText reads character data up to the next '<' that can begin markup.
// A '<' followed by anything else is literal text.
func (z *tokenizer) scanText(b []byte, eof bool) (Token, int, bool) {
	i := 1
	for {
		j := bytes.IndexByte(b[i:], '<')
		if j < 0 {
			if !eof {
				return Token{}, 0, false
			}
			return textToken(b), len(b), true
		}
		i += j
		if i+1 >= len(b) {
			if !eof {
				return Token{}, 0, false
			}
			return textToken(b), len(b), true
		}
		if isTagStart(b[i+1]) {
			return textToken(b[:i]), i, true
		}
		i++
	}
}

func (z *tokenizer) scanStartTag(b []byte, eof bool) (Token, int, bool) {
	i := 1
	for i < len(b) && !isSpace(b[i]) && b[i] != '/' && b[i] != '>' {
		i++
	}
	if i >= len(b) && !eof {
		return Token{}, 0, false
	}
	tok := Token{Kind: tokenTagOpen}
	tok.Name, tok.atom = intern(b[1:i])
	for {
		for i < len(b) && (isSpace(b[i]) || b[i] == '/') {
			if b[i] == '/' && i+1 < len(b) && b[i+1] == '>' {
				tok.SelfClosing = true
			}
			i++
		}
		if i >= len(b) {
			if !eof {
				return Token{}, 0, false
			}
			break
		}
		if b[i] == '>' {
			i++
			break
		}
		tok.SelfClosing = false
		start := i
		for i < len(b) && !isSpace(b[i]) && b[i] != '/' && b[i] != '>' && (b[i] != '=' || i == start) {
			i++
		}
		if i >= len(b) && !eof {
			return Token{}, 0, false
		}
		key, _ := intern(b[start:i])
		j := i
		for j < len(b) && isSpace(b[j]) {
			j++
		}
		if j >= len(b) && !eof {
			return Token{}, 0, false
		}
		if j >= len(b) || b[j] != '=' {
			tok.Attrs = tok.Attrs.add(key, "")
			continue
		}
		i = j + 1
		for i < len(b) && isSpace(b[i]) {
			i++
		}
		if i >= len(b) {
			if !eof {
				return Token{}, 0, false
			}
			tok.Attrs = tok.Attrs.add(key, "")
			break
		}
		var val []byte
		if q := b[i]; q == '"' || q == '\'' {
			v, next, ok := z.scanQuoted(b, i+1, q, eof)
			if !ok {
				return Token{}, 0, false
			}
			val, i = v, next
		} else {
			start := i
			for i < len(b) && !isSpace(b[i]) && b[i] != '>' {
				i++
			}
			if i >= len(b) && !eof {
				return Token{}, 0, false
			}
			val = b[start:i]
		}
		tok.Attrs = tok.Attrs.add(key, html.UnescapeString(string(val)))
	}
	tok.Raw = string(b[:i])
	return tok, i, true
}

// scanQuoted reads a quoted attribute value starting at start. The value is
// considered closed when the matching quote appears before any tag-like '<'
// that follows a '>'. Otherwise the quote is treated as unclosed and the value
// runs to the first '>' (or end of input), where the tag then closes.
func (z *tokenizer) scanQuoted(b []byte, start int, q byte, eof bool) ([]byte, int, bool) {
	firstGT := -1
	for j := start; j < len(b); j++ {
		switch b[j] {
		case q:
			return b[start:j], j + 1, true
		case '>':
			if firstGT < 0 {
				firstGT = j
			}
		case '<':
			if firstGT < 0 {
				continue
			}
			if j+1 >= len(b) {
				if !eof {
					return nil, 0, false
				}
				continue
			}
			if isTagStart(b[j+1]) {
				z.debug("unclosed attribute quote")
				return b[start:firstGT], firstGT, true
			}
		}
	}
	if !eof {
		return nil, 0, false
	}
	z.debug("unclosed attribute quote")
	if firstGT >= 0 {
		return b[start:firstGT], firstGT, true
	}
	return b[start:], len(b), true
}

func (z *tokenizer) scanEndTag(b []byte, eof bool) (Token, int, bool) {
	if len(b) < 3 {
		if !eof {
			return Token{}, 0, false
		}
		return textToken(b), len(b), true
	}
	if b[2] == '>' {
		return Token{Kind: tokenComment}, 3, true
	}
	if !isASCIIAlpha(b[2]) {
		return z.scanBogus(b, 2, eof)
	}
	i := 2
	for i < len(b) && !isSpace(b[i]) && b[i] != '/' && b[i] != '>' {
		i++
	}
	end := len(b)
	if j := bytes.IndexByte(b[i:], '>'); j >= 0 {
		end = i + j + 1
	} else if !eof {
		return Token{}, 0, false
	}
	tok := Token{Kind: tokenTagClose, Raw: string(b[:end])}
	tok.Name, tok.atom = intern(b[2:i])
	return tok, end, true
}

func (z *tokenizer) scanMarkupDecl(b []byte, eof bool) (Token, int, bool) {
	if hasPartialPrefix(b, commentOpen) || hasPartialPrefix(b, cdataOpen) {
		if !eof {
			return Token{}, 0, false
		}
	}
	switch {
	case bytes.HasPrefix(b, commentOpen):
		return z.scanComment(b, eof)
	case bytes.HasPrefix(b, cdataOpen):
		body := b[len(cdataOpen):]
		j := bytes.Index(body, cdataClose)
		if j < 0 {
			if !eof {
				return Token{}, 0, false
			}
			return Token{Kind: tokenText, Data: string(body)}, len(b), true
		}
		return Token{Kind: tokenText, Data: string(body[:j])}, len(cdataOpen) + j + len(cdataClose), true
	}
	tok, n, ok := z.scanBogus(b, 2, eof)
	tok.Kind = tokenDoctype
	return tok, n, ok
}

// scanComment reads <!-- ... -->. An unterminated comment resumes at the
// first structurally valid tag after the marker so that trailing well-formed
// markup survives; without one the comment runs to the end of input.
func (z *tokenizer) scanComment(b []byte, eof bool) (Token, int, bool) {
	body := b[len(commentOpen):]
	if bytes.HasPrefix(body, []byte(">")) {
		return Token{Kind: tokenComment}, len(commentOpen) + 1, true
	}
	if bytes.HasPrefix(body, []byte("->")) {
		return Token{Kind: tokenComment}, len(commentOpen) + 2, true
	}
	if j := bytes.Index(body, commentClose); j >= 0 {
		return Token{Kind: tokenComment, Data: string(body[:j])}, len(commentOpen) + j + len(commentClose), true
	}
	if !eof {
		return Token{}, 0, false
	}
	z.debug("unterminated comment")
	if k := resumeTag(body); k >= 0 {
		return Token{Kind: tokenComment, Data: string(body[:k])}, len(commentOpen) + k, true
	}
	return Token{Kind: tokenComment, Data: string(body)}, len(b), true
}

// resumeTag returns the offset of the first '<' in b that starts a tag
// (<name or </name) closed by '>' before any further '<'.
func resumeTag(b []byte) int {
	for i := 0; i < len(b); i++ {
		if b[i] != '<' || i+1 >= len(b) {
			continue
		}
		j := i + 1
		if b[j] == '/' {
			j++
		}
		if j >= len(b) || !isASCIIAlpha(b[j]) {
			continue
		}
		for k := j; k < len(b); k++ {
			if b[k] == '>' {
				return i
			}
			if b[k] == '<' {
				break
			}
		}
	}
	return -1
}

// scanBogus consumes up to and including the next '>'.
func (z *tokenizer) scanBogus(b []byte, skip int, eof bool) (Token, int, bool) {
	j := bytes.IndexByte(b[skip:], '>')
	if j < 0 {
		if !eof {
			return Token{}, 0, false
		}
		return Token{Kind: tokenComment, Data: string(b[skip:])}, len(b), true
	}
	return Token{Kind: tokenComment, Data: string(b[skip : skip+j])}, skip + j + 1, true
}

func (z *tokenizer) scanRawText(b []byte, eof bool) (Token, int, bool) {
	name := z.rawTag
	for i := 0; ; {
		j := bytes.Index(b[i:], []byte("</"))
		if j < 0 {
			if !eof {
				return Token{}, 0, false
			}
			z.rawTag = ""
			return z.rawToken(name, b), len(b), true
		}
		i += j
		end := i + 2 + len(name)
		if end >= len(b) && !eof {
			return Token{}, 0, false
		}
		if end <= len(b) && equalFoldASCII(b[i+2:end], name) && (end == len(b) || isSpace(b[end]) || b[end] == '/' || b[end] == '>') {
			z.rawTag = ""
			if i == 0 {
				return Token{}, 0, true
			}
			return z.rawToken(name, b[:i]), i, true
		}
		i += 2
	}
}

func (z *tokenizer) rawToken(name string, raw []byte) Token {
	if name == "textarea" || name == "title" {
		return textToken(raw)
	}
	return Token{Kind: tokenText, Data: string(raw)}
}

// intern lower-cases an ASCII tag or attribute name, returning the static
// atom string for known names.
func intern(b []byte) (string, atom.Atom) {
	var small [32]byte
	var lower []byte
	if len(b) <= len(small) {
		lower = small[:len(b)]
	} else {
		lower = make([]byte, len(b))
	}
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	if a := atom.Lookup(lower); a != 0 {
		return a.String(), a
	}
	return string(lower), 0
}

func hasPartialPrefix(b, prefix []byte) bool {
	return len(b) < len(prefix) && bytes.HasPrefix(prefix, b)
}

func equalFoldASCII(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}
	return true
}

func isASCIIAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isTagStart(c byte) bool {
	return isASCIIAlpha(c) || c == '/' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
