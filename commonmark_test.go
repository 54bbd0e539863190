package htmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

func renderMarkdown(t *testing.T, md goldmark.Markdown, src string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		t.Fatalf("goldmark: %v", err)
	}
	return buf.String()
}

var htmlText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Text must survive a round trip through a CommonMark parser unchanged:
// every escape is needed and none is missing.
func TestEscapedTextRoundTrips(t *testing.T) {
	md := goldmark.New()
	for _, text := range []string{
		"*not emphasis*",
		"_under_ snake_case x_y_z",
		"__init__",
		"**",
		"foo*bar*baz",
		"# not a heading",
		"#5 issue",
		"1. not a list",
		"2) not a list",
		"1986. A great year",
		"- not a list",
		"+ not a list",
		"* not a list",
		"> not a quote",
		"---",
		"===",
		"[not](a link)",
		"![alt](x)",
		"[",
		"`not code`",
		"a <b> c",
		"<http://example.com>",
		"AT&T &amp; co &copy; &#35;",
		`back\slash trailing\`,
		`a\*b`,
		"~~strike~~",
		"4 < 5 > 3",
		"| pipe |",
	} {
		html := "<p>" + htmlText.Replace(text) + "</p>"
		out, err := Convert(html)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		want := "<p>" + htmlText.Replace(text) + "</p>\n"
		if got := renderMarkdown(t, md, out); got != want {
			t.Fatalf("text %q did not round trip\nmarkdown: %q\n    want: %q\n     got: %q", text, out, want, got)
		}
	}
}

func TestArticleParsesAsGFM(t *testing.T) {
	out, err := Convert(readArticle(t))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	got := renderMarkdown(t, goldmark.New(goldmark.WithExtensions(extension.GFM)), out)
	for _, want := range []string{
		"<h1>Streaming <em>conversion</em> notes</h1>",
		`<a href="/authors/sam" title="Author page">Sam</a>`,
		"<li>Output must not depend on how the input was split.</li>",
		"<strong>recovered</strong>",
		"<h2>Tokens &amp; frames</h2>",
		"<code>TagOpen</code>",
		"<blockquote>",
		"In <em>that</em> order.",
		`<pre><code class="language-go">func (c *converter) drain(eof bool) {`,
		`checked=""`,
		"<li>Header row</li>",
		"<code>a|b</code>",
		"<th>Driver</th>",
		"<td><code>io.Reader</code></td>",
		"<td>fragments | errors</td>",
		`<img src="/img/pipeline.png" alt="Pipeline diagram" title="Tokenizer to emitter">`,
		"click here for nothing at all.<br>",
		`<a href="mailto:team@example.com">team@example.com</a>`,
		"<hr>",
		"$10 * 2, a 4 &lt; 5 situation_with_underscores and 1. a sentence",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("rendered article missing %q\nmarkdown:\n%s\nhtml:\n%s", want, out, got)
		}
	}
	for _, unwanted := range []string{"dataLayer", "font-family", "comments never", "Search"} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("rendered article contains suppressed content %q", unwanted)
		}
	}
}

func TestQuotedBlocksKeepTheirShape(t *testing.T) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	cases := []struct {
		html string
		want []string
		not  []string
	}{
		{
			html: `<blockquote><table><tr><th>a</th></tr><tr><td>1</td></tr></table><p>after</p></blockquote>`,
			want: []string{"<th>a</th>", "<td>1</td>", "<p>after</p>"},
			not:  []string{"<td>after</td>"},
		},
		{
			html: `<blockquote><p>a</p><hr><p>b</p></blockquote>`,
			want: []string{"<p>a</p>", "<hr>", "<p>b</p>"},
			not:  []string{"<h2>"},
		},
	}
	for _, tc := range cases {
		out, err := Convert(tc.html)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		got := renderMarkdown(t, md, out)
		for _, s := range tc.want {
			if !strings.Contains(got, s) {
				t.Fatalf("rendered %q lacks %q:\n%s", out, s, got)
			}
		}
		for _, s := range tc.not {
			if strings.Contains(got, s) {
				t.Fatalf("rendered %q contains %q:\n%s", out, s, got)
			}
		}
	}
}
