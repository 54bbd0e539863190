package htmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
)

var parityInputs = []string{
	`<p>Above</p><hr><p>Below</p>`,
	`<blockquote>Outer quote<blockquote>Inner quote</blockquote></blockquote>`,
	`<h1>T</h1><p>a <b>b</b> <a href="/c">c</a></p><ul><li>x<ul><li>y</li></ul></li></ul>`,
	`<table><tr><th>a</th></tr><tr><td>1</td></tr></table><pre>x
y</pre>`,
	`<p>before</p><!-- broken <p>after</p>`,
	`<p><a href="/x>link</a></p><p>after &amp; more`,
	`<script>if (a<b) {}</script><p>x</p>`,
}

func readArticle(t testing.TB) string {
	t.Helper()
	data, err := os.ReadFile("testdata/article.html")
	if err != nil {
		t.Fatalf("read article.html: %v", err)
	}
	return string(data)
}

func collectStream(t *testing.T, r io.Reader, opts ...Option) []string {
	t.Helper()
	seq, err := ConvertStream(r, opts...)
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	var frags []string
	for frag, err := range seq {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		frags = append(frags, frag)
	}
	return frags
}

func collectChunks(t *testing.T, html string, opts ...Option) []string {
	t.Helper()
	seq, err := ConvertChunks(html, opts...)
	if err != nil {
		t.Fatalf("ConvertChunks: %v", err)
	}
	var frags []string
	for frag := range seq {
		frags = append(frags, frag)
	}
	return frags
}

// chunkReader returns at most n bytes per Read.
type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	k := min(r.n, len(p), len(r.data))
	copy(p, r.data[:k])
	r.data = r.data[k:]
	return k, nil
}

func TestChunksAndStreamMatchConvert(t *testing.T) {
	inputs := append([]string{readArticle(t)}, parityInputs...)
	opts := []Option{WithOrigin("https://example.com/blog/post")}
	for i, html := range inputs {
		want, err := Convert(html, opts...)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		if got := strings.Join(collectChunks(t, html, opts...), ""); got != want {
			t.Fatalf("input %d: chunks differ from Convert\nwant: %q\n got: %q", i, want, got)
		}
		if got := strings.Join(collectStream(t, strings.NewReader(html), opts...), ""); got != want {
			t.Fatalf("input %d: stream differs from Convert\nwant: %q\n got: %q", i, want, got)
		}
		if got := strings.Join(collectStream(t, iotest.OneByteReader(strings.NewReader(html)), opts...), ""); got != want {
			t.Fatalf("input %d: byte-wise stream differs from Convert\nwant: %q\n got: %q", i, want, got)
		}
		if got := strings.Join(collectStream(t, iotest.DataErrReader(strings.NewReader(html)), opts...), ""); got != want {
			t.Fatalf("input %d: data+EOF stream differs from Convert\nwant: %q\n got: %q", i, want, got)
		}
	}
}

func TestStreamChunkBoundaries(t *testing.T) {
	html := readArticle(t)
	want, err := Convert(html)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for n := 1; n <= 37; n++ {
		got := strings.Join(collectStream(t, &chunkReader{data: []byte(html), n: n}), "")
		if got != want {
			t.Fatalf("chunk size %d differs:\n%s", n, cmp.Diff(want, got))
		}
	}
}

func TestChunksYieldTopLevelBlocks(t *testing.T) {
	got := collectChunks(t, `<h1>T</h1><p>a</p><ul><li>x</li><li>y</li></ul><div><p>b</p><p>c</p></div>`)
	want := []string{"# T", "\n\na", "\n\n- x\n- y", "\n\nb", "\n\nc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected fragments (-want +got):\n%s", diff)
	}
}

func TestChunksHoldNestedBlocks(t *testing.T) {
	got := collectChunks(t, `<blockquote><p>a</p><p>b</p></blockquote><table><tr><td>x</td></tr></table>`)
	want := []string{"> a\n> b", "\n\n| x   |\n| --- |"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected fragments (-want +got):\n%s", diff)
	}
}

func TestChunksSingleUse(t *testing.T) {
	seq, err := ConvertChunks(`<p>a</p><p>b</p>`)
	if err != nil {
		t.Fatalf("ConvertChunks: %v", err)
	}
	n := 0
	for range seq {
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 fragments, got %d", n)
	}
	for range seq {
		t.Fatalf("second iteration must yield nothing")
	}
}

func TestChunksEarlyStop(t *testing.T) {
	seq, err := ConvertChunks(`<p>a</p><p>b</p><p>c</p>`)
	if err != nil {
		t.Fatalf("ConvertChunks: %v", err)
	}
	for frag := range seq {
		if frag != "a" {
			t.Fatalf("unexpected first fragment %q", frag)
		}
		break
	}
	// A pooled converter abandoned mid-document must not leak state.
	got, err := Convert(`<p>fresh</p>`)
	if err != nil || got != "fresh" {
		t.Fatalf("unexpected output after early stop: %q, %v", got, err)
	}
}

type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

func TestStreamReadsOnDemand(t *testing.T) {
	html := strings.Repeat("<p>paragraph text</p>", 2000)
	cr := &countingReader{r: iotest.HalfReader(strings.NewReader(html))}
	seq, err := ConvertStream(cr)
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	for frag, err := range seq {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if frag != "paragraph text" {
			t.Fatalf("unexpected first fragment %q", frag)
		}
		break
	}
	if cr.reads != 1 {
		t.Fatalf("expected a single read before the first fragment, got %d", cr.reads)
	}
}

func TestStreamReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("<p>one</p><p>tw"), iotest.ErrReader(boom))
	seq, err := ConvertStream(r)
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	var (
		frags []string
		errs  []error
	)
	for frag, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frags = append(frags, frag)
	}
	if diff := cmp.Diff([]string{"one"}, frags); diff != "" {
		t.Fatalf("unexpected fragments (-want +got):\n%s", diff)
	}
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("expected one wrapped read error, got %v", errs)
	}
}

func TestStreamSingleUse(t *testing.T) {
	seq, err := ConvertStream(strings.NewReader(`<p>a</p>`))
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	for _, err := range seq {
		if err != nil {
			t.Fatalf("first iteration: %v", err)
		}
	}
	var got error
	for _, err := range seq {
		got = err
	}
	if !errors.Is(got, ErrSequenceReused) {
		t.Fatalf("expected ErrSequenceReused, got %v", got)
	}
}

func TestStreamNilReader(t *testing.T) {
	if _, err := ConvertStream(nil); err == nil {
		t.Fatalf("expected error for nil reader")
	}
}

func TestConvertReader(t *testing.T) {
	html := readArticle(t)
	want, err := Convert(html, WithExclude("nav", "footer"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	var out bytes.Buffer
	if err := ConvertReader(&out, iotest.OneByteReader(strings.NewReader(html)), WithExclude("nav", "footer")); err != nil {
		t.Fatalf("ConvertReader: %v", err)
	}
	if out.String() != want {
		t.Fatalf("ConvertReader differs from Convert:\n%s", cmp.Diff(want, out.String()))
	}
	if err := ConvertReader(nil, strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for nil writer")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestConvertReaderWriteError(t *testing.T) {
	err := ConvertReader(failingWriter{}, strings.NewReader("<p>a</p>"))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestHTTPConvert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<p>caf\xe9 <a href=\"menu\">menu</a></p>"))
		case "/missing":
			http.NotFound(w, r)
		default:
			http.Redirect(w, r, "/latin1", http.StatusFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := HTTPConvert(context.Background(), HTTPConvertRequest{URL: srv.URL + "/start", Writer: &out})
	if err != nil {
		t.Fatalf("HTTPConvert: %v", err)
	}
	if want := "café [menu](" + srv.URL + "/menu)"; out.String() != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, out.String())
	}

	out.Reset()
	err = HTTPConvert(context.Background(), HTTPConvertRequest{
		URL:     srv.URL + "/latin1",
		Writer:  &out,
		Options: []Option{WithOrigin("https://mirror.example/base/")},
	})
	if err != nil {
		t.Fatalf("HTTPConvert: %v", err)
	}
	if want := "café [menu](https://mirror.example/base/menu)"; out.String() != want {
		t.Fatalf("caller origin must win\nwant: %q\n got: %q", want, out.String())
	}

	err = HTTPConvert(context.Background(), HTTPConvertRequest{URL: srv.URL + "/missing", Writer: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTTPConvertRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	if err := HTTPConvert(ctx, HTTPConvertRequest{Writer: io.Discard}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
	if err := HTTPConvert(ctx, HTTPConvertRequest{URL: "https://example.com"}); err == nil {
		t.Fatalf("expected error for nil writer")
	}
	if err := HTTPConvert(ctx, HTTPConvertRequest{URL: "ftp://example.com/x", Writer: io.Discard}); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	if err := HTTPConvert(canceled, HTTPConvertRequest{URL: srv.URL, Writer: io.Discard}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
