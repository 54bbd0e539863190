package htmd

type escapeMode uint8

const (
	// escapeInline escapes characters that would start inline syntax.
	escapeInline escapeMode = 1 << iota
	// escapeLineStart additionally escapes block syntax at the start of a line.
	escapeLineStart
	// escapePipe escapes table cell delimiters.
	escapePipe
	// escapeBracket escapes ']' inside link text.
	escapeBracket
)

// appendEscaped appends one whitespace-free word with the minimal escaping
// that keeps it literal. The word is the unit for edge-of-word rules.
func appendEscaped(dst []byte, w string, mode escapeMode) []byte {
	if mode == 0 || w == "" {
		return append(dst, w...)
	}
	i := 0
	if mode&escapeLineStart != 0 {
		dst, i = appendLineStart(dst, w)
	}
	for ; i < len(w); i++ {
		ch := w[i]
		switch {
		case mode&escapeInline != 0 && needsInlineEscape(w, i):
			dst = append(dst, '\\')
		case ch == '|' && mode&escapePipe != 0:
			dst = append(dst, '\\')
		case ch == ']' && mode&escapeBracket != 0:
			dst = append(dst, '\\')
		}
		dst = append(dst, ch)
	}
	return dst
}

// appendLineStart escapes a word that would otherwise open a heading,
// blockquote, list item, thematic break or setext underline. It returns the
// number of bytes of w already written.
func appendLineStart(dst []byte, w string) ([]byte, int) {
	switch ch := w[0]; {
	case ch == '#' || ch == '>':
		return append(dst, '\\', ch), 1
	case ch == '-' || ch == '+' || ch == '=':
		if isRun(w, ch) {
			return append(dst, '\\'), 0
		}
	case isDigit(ch):
		j := 1
		for j < len(w) && isDigit(w[j]) {
			j++
		}
		if j <= 9 && j == len(w)-1 && (w[j] == '.' || w[j] == ')') {
			dst = append(dst, w[:j]...)
			return append(dst, '\\'), j
		}
	}
	return dst, 0
}

func needsInlineEscape(w string, i int) bool {
	switch w[i] {
	case '*', '`', '[':
		return true
	case '\\':
		return i+1 == len(w) || isASCIIPunct(w[i+1])
	case '_':
		return i == 0 || i == len(w)-1 || !isWordByte(w[i-1]) || !isWordByte(w[i+1])
	case '<':
		return i+1 < len(w) && isTagStart(w[i+1])
	case '&':
		return isEntityLike(w[i+1:])
	case '~':
		return i+1 < len(w) && w[i+1] == '~'
	}
	return false
}

// isEntityLike reports whether s starts with the remainder of a character
// reference such as "amp;" or "#39;".
func isEntityLike(s string) bool {
	i := 0
	if i < len(s) && s[i] == '#' {
		i++
		if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
			i++
		}
	}
	start := i
	for i < len(s) && i-start < 32 && (isDigit(s[i]) || isASCIIAlpha(s[i])) {
		i++
	}
	return i > start && i < len(s) && s[i] == ';'
}

func isRun(s string, ch byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ch {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isWordByte(c byte) bool {
	return isDigit(c) || isASCIIAlpha(c) || c >= 0x80
}

func isASCIIPunct(c byte) bool {
	switch {
	case '!' <= c && c <= '/', ':' <= c && c <= '@', '[' <= c && c <= '`', '{' <= c && c <= '~':
		return true
	}
	return false
}

// appendAlt appends image alt text with whitespace collapsed and brackets
// escaped.
func appendAlt(dst []byte, alt string) []byte {
	space := false
	for i := 0; i < len(alt); i++ {
		ch := alt[i]
		if isSpace(ch) {
			space = true
			continue
		}
		if space && len(dst) > 0 && dst[len(dst)-1] != '[' {
			dst = append(dst, ' ')
		}
		space = false
		if ch == '[' || ch == ']' || ch == '\\' {
			dst = append(dst, '\\')
		}
		dst = append(dst, ch)
	}
	return dst
}

// appendTitle appends a link title as ` "title"`.
func appendTitle(dst []byte, title string) []byte {
	if title == "" {
		return dst
	}
	dst = append(dst, ' ', '"')
	for i := 0; i < len(title); i++ {
		ch := title[i]
		switch ch {
		case '"', '\\':
			dst = append(dst, '\\')
		case '\n', '\r', '\t':
			ch = ' '
		}
		dst = append(dst, ch)
	}
	return append(dst, '"')
}
