package htmd

import "golang.org/x/net/html/atom"

// Token is one lexical unit of HTML markup.
type Token struct {
	Kind        TokenKind
	Name        string
	Attrs       Attributes
	SelfClosing bool
	// Data holds character data for text, comment and doctype tokens.
	// Entities are decoded in text; nothing is Markdown-escaped yet.
	Data string
	// Raw is the source span of a tag, kept for malformed attribute recovery.
	Raw string

	atom atom.Atom
}

type tokenKind uint8

// TokenKind is the exported alias of tokenKind for plugins and tooling.
type TokenKind = tokenKind

const (
	tokenText tokenKind = iota
	tokenTagOpen
	tokenTagClose
	tokenComment
	tokenDoctype
)

const (
	// TokenText represents character data between tags.
	TokenText tokenKind = tokenText
	// TokenTagOpen represents a start tag.
	TokenTagOpen tokenKind = tokenTagOpen
	// TokenTagClose represents an end tag.
	TokenTagClose tokenKind = tokenTagClose
	// TokenComment represents a comment, terminated or not.
	TokenComment tokenKind = tokenComment
	// TokenDoctype represents a doctype or processing instruction.
	TokenDoctype tokenKind = tokenDoctype
)

func (k tokenKind) String() string {
	switch k {
	case tokenText:
		return "Text"
	case tokenTagOpen:
		return "TagOpen"
	case tokenTagClose:
		return "TagClose"
	case tokenComment:
		return "Comment"
	case tokenDoctype:
		return "Doctype"
	default:
		return "Unknown"
	}
}

// Attribute is a single key/value pair from a start tag.
type Attribute struct {
	Key string
	Val string
}

// Attributes is the attribute list of a start tag in source order.
type Attributes []Attribute

// Get returns the value for key and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// Value returns the value for key or the empty string.
func (a Attributes) Value(key string) string {
	v, _ := a.Get(key)
	return v
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

func (a Attributes) add(key, val string) Attributes {
	if a.Has(key) {
		return a
	}
	return append(a, Attribute{Key: key, Val: val})
}
