package htmd

import (
	"net/url"
	"strings"
)

// resolveURL resolves a relative reference against the session origin.
// Absolute URLs and unparsable references pass through unchanged.
func (c *converter) resolveURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if c.s.origin == nil || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		c.debug("unparsable url", "url", raw)
		return raw
	}
	if u.IsAbs() {
		return raw
	}
	return c.s.origin.ResolveReference(u).String()
}

func isScriptURL(raw string) bool {
	i := 0
	for i < len(raw) && (raw[i] <= ' ') {
		i++
	}
	s := raw[i:]
	for _, scheme := range [...]string{"javascript:", "vbscript:"} {
		if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
			return true
		}
	}
	return false
}

// appendDestination appends a link destination, wrapping it in angle
// brackets when it contains spaces or unbalanced parentheses.
func appendDestination(dst []byte, u string) []byte {
	wrap := false
	depth := 0
	for i := 0; i < len(u); i++ {
		switch u[i] {
		case ' ', '<', '>', '\t', '\n', '\r':
			wrap = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				wrap = true
			}
		}
	}
	if depth != 0 {
		wrap = true
	}
	if !wrap {
		return append(dst, u...)
	}
	dst = append(dst, '<')
	for i := 0; i < len(u); i++ {
		switch ch := u[i]; ch {
		case '<':
			dst = append(dst, "%3C"...)
		case '>':
			dst = append(dst, "%3E"...)
		case '\n', '\r', '\t':
			dst = append(dst, ' ')
		default:
			dst = append(dst, ch)
		}
	}
	return append(dst, '>')
}
