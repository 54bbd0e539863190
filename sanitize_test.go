package htmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDetectBinaryRejectsNUL(t *testing.T) {
	data := append([]byte("<p>hello"), 0x00)
	if err := DetectBinary(data); !errors.Is(err, ErrBinaryInput) {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
}

func TestDetectBinaryControlShare(t *testing.T) {
	noisy := bytes.Repeat([]byte{'a', 'b', 'c', 0x01}, 32)
	if err := DetectBinary(noisy); !errors.Is(err, ErrBinaryInput) {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
	// Short samples are judged on NUL bytes only.
	if err := DetectBinary([]byte{'a', 0x01}); err != nil {
		t.Fatalf("expected short sample to pass, got %v", err)
	}
	page := []byte(strings.Repeat("<p>text\twith\r\nwhitespace</p>\n", 10))
	if err := DetectBinary(page); err != nil {
		t.Fatalf("expected markup to pass, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"bell\x07here", "bellhere"},
		{"del\x7f", "del"},
		{"bad\xffutf8", "badutf8"},
		{"café \xc3", "café "},
		{"日本\x00語", "日本語"},
	}
	for _, tc := range cases {
		if got := sanitizeText(tc.in); got != tc.want {
			t.Fatalf("sanitizeText(%q)\nwant: %q\n got: %q", tc.in, tc.want, got)
		}
	}
}

func TestConvertDropsControlCharacters(t *testing.T) {
	got, err := Convert("<p>a\x01b \xffc</p>")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if want := "ab c"; got != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, got)
	}
}
