package htmd

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// ConvertStream converts HTML read from r, yielding Markdown fragments as
// top-level blocks complete. Input is read in 4 KiB chunks only when the
// consumer asks for the next fragment. A read error is yielded once as the
// final element, after every fragment of blocks completed before it.
//
// The sequence can be iterated once; a second iteration yields
// ErrSequenceReused.
func ConvertStream(r io.Reader, opts ...Option) (iter.Seq2[string, error], error) {
	if r == nil {
		return nil, fmt.Errorf("convert stream: reader is nil")
	}
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	used := false
	return func(yield func(string, error) bool) {
		if used {
			yield("", ErrSequenceReused)
			return
		}
		used = true
		c := acquireConverter(s)
		defer releaseConverter(c)
		emit := func(frag string) bool {
			return yield(frag, nil)
		}
		buf := c.readBufArr[:]
		for {
			n, err := r.Read(buf)
			if n > 0 {
				c.tok.write(buf[:n])
				if !c.drain(false, emit) {
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				yield("", fmt.Errorf("convert stream: read: %w", err))
				return
			}
		}
		c.drain(true, emit)
	}, nil
}

// ConvertReader streams the Markdown for the HTML read from r to w, writing
// each fragment as soon as it completes.
func ConvertReader(w io.Writer, r io.Reader, opts ...Option) error {
	if w == nil {
		return fmt.Errorf("convert stream: writer is nil")
	}
	seq, err := ConvertStream(r, opts...)
	if err != nil {
		return err
	}
	for frag, err := range seq {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, frag); err != nil {
			return fmt.Errorf("convert stream: write: %w", err)
		}
	}
	return nil
}
