package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// input is one command line argument, opened on first read.
type input struct {
	name string
	open func() (io.ReadCloser, error)
}

// inputChain reads its inputs back to back. Each input is opened when the
// previous one is exhausted and closed at its EOF.
type inputChain struct {
	pending []input
	cur     io.ReadCloser
}

func (c *inputChain) Read(p []byte) (int, error) {
	for {
		if c.cur == nil {
			if len(c.pending) == 0 {
				return 0, io.EOF
			}
			in := c.pending[0]
			c.pending = c.pending[1:]
			rc, err := in.open()
			if err != nil {
				return 0, fmt.Errorf("%s: %w", in.name, err)
			}
			c.cur = rc
		}
		n, err := c.cur.Read(p)
		if errors.Is(err, io.EOF) {
			_ = c.cur.Close()
			c.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *inputChain) Close() error {
	c.pending = nil
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}

// openInputs returns stdin when args is empty and a lazy chain otherwise.
func openInputs(args []string) (io.ReadCloser, error) {
	if len(args) == 0 {
		return io.NopCloser(os.Stdin), nil
	}
	chain := &inputChain{pending: make([]input, 0, len(args))}
	for _, arg := range args {
		in, err := parseInput(arg)
		if err != nil {
			return nil, err
		}
		chain.pending = append(chain.pending, in)
	}
	return chain, nil
}

func parseInput(arg string) (input, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return input{}, errors.New("empty input argument")
	}
	path := arg
	if u, err := url.Parse(arg); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return input{name: arg, open: func() (io.ReadCloser, error) {
				return fetch(context.Background(), arg)
			}}, nil
		case "file":
			path = cmp.Or(u.Path, u.Host)
		}
	}
	return input{name: arg, open: func() (io.ReadCloser, error) {
		return os.Open(expandPath(path))
	}}, nil
}

type decodedBody struct {
	io.Reader
	io.Closer
}

// fetch GETs an http(s) input and decodes the body to UTF-8 from the declared
// or sniffed charset, as HTTPConvert does.
func fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return decodedBody{Reader: body, Closer: resp.Body}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// createOutput opens path for writing, creating parent directories. An empty
// path means stdout.
func createOutput(path string) (io.WriteCloser, error) {
	if strings.TrimSpace(path) == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// expandPath resolves a leading ~ to the home directory and makes the path
// absolute when possible.
func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/') {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + rest
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// throttledReader hands out at most chunk bytes per Read and pauses after
// each one, so the streaming path can be watched.
type throttledReader struct {
	r     io.Reader
	chunk int
	pause time.Duration
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if t.chunk > 0 {
		p = p[:min(len(p), t.chunk)]
	}
	n, err := t.r.Read(p)
	if n > 0 && t.pause > 0 {
		time.Sleep(t.pause)
	}
	return n, err
}
