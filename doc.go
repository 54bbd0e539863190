// Package htmd converts HTML to Markdown in a single streaming pass.
//
// The converter tokenizes markup incrementally, tracks element nesting on a
// fixed stack and writes Markdown as soon as each block is decided. It never
// builds a document tree and never fails on malformed markup: unclosed tags,
// stray end tags, broken comments and overlapping inline elements are all
// recovered locally.
//
// Core properties:
//   - One-shot, chunked and io.Reader driven conversion with identical output
//   - Bounded memory: only the open element stack and the current table or
//     code block are buffered
//   - Plugins that skip, replace or observe elements as they stream past
//   - Low allocations in hot paths
//
// Example:
//
//	md, err := htmd.Convert(`<h1>Hello</h1><p>HTML in, <b>Markdown</b> out.</p>`)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(md)
//
// Streaming a response body:
//
//	seq, err := htmd.ConvertStream(resp.Body, htmd.WithOrigin("https://example.com"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	for frag, err := range seq {
//		if err != nil {
//			log.Fatal(err)
//		}
//		os.Stdout.WriteString(frag)
//	}
//
// Conversion can be customized with Options such as WithOrigin, WithExclude
// and WithPlugins.
package htmd
