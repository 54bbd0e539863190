package htmd

import (
	"strings"
	"testing"
	"testing/iotest"
)

func FuzzConvert(f *testing.F) {
	for _, seed := range parityInputs {
		f.Add(seed)
	}
	f.Add(`<ul><li><p>a<li>b</ul></p><table><td>x<tr><th>y</table>`)
	f.Add(`<b><i><a href="x">a</b>b</i>c</a><code>d<pre>e</code>`)
	f.Add("<!--<p x='y\"><<</ <![CDATA[")
	f.Fuzz(func(t *testing.T, html string) {
		want, err := Convert(html)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		seq, err := ConvertChunks(html)
		if err != nil {
			t.Fatalf("ConvertChunks: %v", err)
		}
		var chunks strings.Builder
		for frag := range seq {
			chunks.WriteString(frag)
		}
		if chunks.String() != want {
			t.Fatalf("chunks differ from Convert\nwant: %q\n got: %q", want, chunks.String())
		}
		var stream strings.Builder
		if err := ConvertReader(&stream, iotest.OneByteReader(strings.NewReader(html))); err != nil {
			t.Fatalf("ConvertReader: %v", err)
		}
		if stream.String() != want {
			t.Fatalf("stream differs from Convert\nwant: %q\n got: %q", want, stream.String())
		}
	})
}
