// Command gen-golden regenerates testdata/<name>.golden from every
// testdata/<name>.html. Run it from the repository root after an
// intentional output change and review the diff.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/htmd"
)

func main() {
	root := "testdata"
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".html") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fatalf("walk %s: %v", root, err)
	}
	if len(paths) == 0 {
		fatalf("no html files found under %s", root)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			fatalf("open %s: %v", path, err)
		}
		var out bytes.Buffer
		err = htmd.ConvertReader(&out, f)
		_ = f.Close()
		if err != nil {
			fatalf("convert %s: %v", path, err)
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		dst := goldenPath(path)
		if err := os.WriteFile(dst, out.Bytes(), 0o644); err != nil {
			fatalf("write %s: %v", dst, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", dst)
	}
}

func goldenPath(htmlPath string) string {
	return strings.TrimSuffix(htmlPath, ".html") + ".golden"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
