package htmd

import (
	"iter"
	"sync"
)

var converterPool = sync.Pool{
	New: func() any {
		return &converter{}
	},
}

func acquireConverter(s *session) *converter {
	c := converterPool.Get().(*converter)
	c.reset(s)
	return c
}

func releaseConverter(c *converter) {
	c.release()
	converterPool.Put(c)
}

// take returns the output produced since the last call.
func (c *converter) take() string {
	c.ready = false
	if len(c.out) == 0 {
		return ""
	}
	s := string(c.out)
	c.out = c.out[:0]
	return s
}

// drain converts every token the buffered input can decide. With yield set,
// output is handed over each time a top-level block completes; drain reports
// false once yield asks to stop. With eof set, open elements are closed and
// the remaining output is handed over.
func (c *converter) drain(eof bool, yield func(string) bool) bool {
	for {
		tok, ok := c.tok.next(eof)
		if !ok {
			break
		}
		c.handle(tok)
		if yield != nil && c.ready {
			if frag := c.take(); frag != "" && !yield(frag) {
				return false
			}
		}
	}
	if !eof {
		return true
	}
	c.finish()
	if yield != nil {
		if frag := c.take(); frag != "" && !yield(frag) {
			return false
		}
	}
	return true
}

// Convert converts a whole HTML document to Markdown. Malformed markup is
// recovered, never reported; the only error is an invalid option.
func Convert(html string, opts ...Option) (string, error) {
	s, err := newSession(opts)
	if err != nil {
		return "", err
	}
	c := acquireConverter(s)
	defer releaseConverter(c)
	c.tok.write([]byte(html))
	c.drain(true, nil)
	return string(c.out), nil
}

// ConvertChunks converts html lazily, yielding one fragment per completed
// top-level block. Concatenating the fragments gives the Convert result.
// The sequence can be iterated once; later iterations yield nothing.
func ConvertChunks(html string, opts ...Option) (iter.Seq[string], error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	used := false
	return func(yield func(string) bool) {
		if used {
			return
		}
		used = true
		c := acquireConverter(s)
		defer releaseConverter(c)
		c.tok.write([]byte(html))
		c.drain(true, yield)
	}, nil
}
