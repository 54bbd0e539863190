package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"pkt.systems/htmd"
	"pkt.systems/version"
)

const (
	defaultChunkSize = 64
	defaultDelay     = 20 * time.Millisecond
	sniffSize        = 512
)

func init() {
	version.SetDefaultModule("pkt.systems/htmd")
}

type options struct {
	origin       string
	include      []string
	exclude      []string
	preset       string
	configPath   string
	outPath      string
	fragments    bool
	simulate     bool
	simChunkSize int
	simDelay     time.Duration
	verbose      bool
	showVersion  bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("htmd", pflag.ExitOnError)
	flags.StringVar(&opts.origin, "origin", "", "Base URL for resolving relative links and images")
	flags.StringSliceVar(&opts.include, "include", nil, "Only convert these tags (comma separated)")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "Drop these tags and their content (comma separated)")
	flags.StringVarP(&opts.preset, "preset", "p", "none", "Plugin preset: "+strings.Join(htmd.PresetNames(), "|"))
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file; flags override its values")
	flags.StringVarP(&opts.outPath, "output", "o", "", "Output file instead of stdout")
	flags.BoolVar(&opts.fragments, "fragments", false, "Mark fragment boundaries with HTML comments")
	flags.BoolVar(&opts.simulate, "simulate", false, "Stream simulator (use default delay and chunk size)")
	flags.IntVar(&opts.simChunkSize, "simulate-chunk", defaultChunkSize, "Max bytes per stream chunk")
	flags.DurationVar(&opts.simDelay, "simulate-delay", defaultDelay, "Delay per stream chunk")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log recovered markup problems to stderr")
	flags.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, version.Module(), version.Current())
		fmt.Fprintf(os.Stderr, "Usage: htmd [flags] [inputs...]\n")
		fmt.Fprintln(os.Stderr, "\nInputs are files, file:// or http(s):// URLs. If no input is provided, HTML is read from stdin.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Fprintln(os.Stdout, version.Module(), version.Current())
		return
	}
	if opts.configPath != "" {
		cfg, err := loadConfig(expandPath(opts.configPath))
		if err != nil {
			fail(2, "config: %v", err)
		}
		cfg.apply(&opts, flags.Changed)
	}

	args := flags.Args()
	if len(args) == 0 && isTerminalFile(os.Stdin) {
		flags.Usage()
		os.Exit(2)
	}

	convOpts, err := opts.convertOptions()
	if err != nil {
		fail(2, "%v", err)
	}

	dst, err := createOutput(opts.outPath)
	if err != nil {
		fail(1, "open output: %v", err)
	}
	defer func() { _ = dst.Close() }()
	out := &trailingNewlineWriter{w: dst}

	if len(args) == 1 && isHTTPURL(args[0]) && !opts.simulate && !opts.fragments {
		err := htmd.HTTPConvert(context.Background(), htmd.HTTPConvertRequest{
			URL:     args[0],
			Writer:  out,
			Options: convOpts,
		})
		if err != nil {
			fail(1, "convert: %v", err)
		}
		if err := out.finish(); err != nil {
			fail(1, "write: %v", err)
		}
		return
	}

	if opts.origin == "" && len(args) == 1 && isHTTPURL(args[0]) {
		convOpts = append(convOpts, htmd.WithOrigin(args[0]))
	}
	in, err := openInputs(args)
	if err != nil {
		fail(1, "open input: %v", err)
	}
	defer func() { _ = in.Close() }()
	reader, err := sniffBinary(in)
	if err != nil {
		fail(1, "input: %v", err)
	}
	if opts.simulate {
		reader = &throttledReader{r: reader, chunk: opts.simChunkSize, pause: opts.simDelay}
	}
	if err := convert(out, reader, convOpts, opts.fragments); err != nil {
		fail(1, "convert: %v", err)
	}
	if err := out.finish(); err != nil {
		fail(1, "write: %v", err)
	}
}

func (o *options) convertOptions() ([]htmd.Option, error) {
	plugins, ok := htmd.Preset(o.preset)
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (want %s)", o.preset, strings.Join(htmd.PresetNames(), "|"))
	}
	var convOpts []htmd.Option
	if o.origin != "" {
		convOpts = append(convOpts, htmd.WithOrigin(o.origin))
	}
	if len(o.include) > 0 {
		convOpts = append(convOpts, htmd.WithInclude(o.include...))
	}
	if len(o.exclude) > 0 {
		convOpts = append(convOpts, htmd.WithExclude(o.exclude...))
	}
	if len(plugins) > 0 {
		convOpts = append(convOpts, htmd.WithPlugins(plugins...))
	}
	if o.verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		convOpts = append(convOpts, htmd.WithLogger(logger))
	}
	return convOpts, nil
}

func convert(w io.Writer, r io.Reader, opts []htmd.Option, fragments bool) error {
	if !fragments {
		return htmd.ConvertReader(w, r, opts...)
	}
	seq, err := htmd.ConvertStream(r, opts...)
	if err != nil {
		return err
	}
	n := 0
	for frag, err := range seq {
		if err != nil {
			return err
		}
		n++
		if _, err := fmt.Fprintf(w, "%s\n<!-- fragment %d -->\n", frag, n); err != nil {
			return err
		}
	}
	return nil
}

func fail(code int, format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "htmd: "+format+"\n", args...)
	os.Exit(code)
}

// trailingNewlineWriter ends non-empty output with a newline.
type trailingNewlineWriter struct {
	w    io.Writer
	last byte
	n    int
}

func (t *trailingNewlineWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.last = p[n-1]
		t.n += n
	}
	return n, err
}

func (t *trailingNewlineWriter) finish() error {
	if t.n == 0 || t.last == '\n' {
		return nil
	}
	_, err := io.WriteString(t.w, "\n")
	return err
}

// sniffBinary refuses input whose first bytes look binary.
func sniffBinary(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	if err := htmd.DetectBinary(head); err != nil {
		return nil, err
	}
	return br, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isTerminalFile(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
