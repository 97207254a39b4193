package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/the-lstv/LWMD"
	"golang.org/x/term"
	"pkt.systems/version"
)

const (
	defaultThemeName = "default"
	defaultWidth     = 80
	defaultChunkSize = 3
	defaultDelay     = 20 * time.Millisecond
)

func init() {
	version.SetDefaultModule("github.com/the-lstv/LWMD")
}

func main() {
	var (
		htmlMode     bool
		simulate     bool
		simChunkSize int
		simDelay     time.Duration
		themeName    string
		widthFlag    int
		listThemes   bool
		outPath      string
		boring       bool
	)

	flags := pflag.NewFlagSet("lwmd", pflag.ExitOnError)
	flags.BoolVarP(&htmlMode, "html", "H", false, "Emit HTML instead of ANSI output")
	flags.BoolVar(&simulate, "simulate", false, "Stream simulator (use default delay and chunk size)")
	flags.IntVar(&simChunkSize, "simulate-chunk", defaultChunkSize, "Max runes per stream chunk")
	flags.DurationVar(&simDelay, "simulate-delay", defaultDelay, "Delay per stream chunk")
	flags.StringVarP(&themeName, "theme", "t", defaultThemeName, "Theme name")
	flags.IntVarP(&widthFlag, "width", "w", 0, "Output width override (0 uses terminal width if available)")
	flags.BoolVar(&listThemes, "list-themes", false, "List available themes")
	flags.StringVarP(&outPath, "output", "o", "", "Output file instead of stdout")
	flags.BoolVarP(&boring, "boring", "b", false, "Generate unstyled output")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, version.Module(), version.Current())
		fmt.Fprintf(os.Stderr, "Usage: lwmd [flags] [inputs...]\n")
		fmt.Fprintln(os.Stderr, "\nIf no input is provided, the document is read from stdin.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if listThemes {
		printThemes()
		return
	}

	args := flags.Args()
	reader, closer, err := openInputs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	writer, closeOut, err := resolveOutput(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open output: %v\n", err)
		os.Exit(1)
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	var sink lwmd.Sink
	var ansiSink *lwmd.ANSISink
	if htmlMode {
		sink = lwmd.NewHTMLSink(writer)
	} else {
		theme, ok := lwmd.ThemeByName(themeName)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown theme %q\n\n", themeName)
			printThemes()
			os.Exit(2)
		}
		if boring {
			theme = lwmd.BoringTheme()
		}
		ansiSink = lwmd.NewANSISink(writer, resolveWidth(widthFlag), theme)
		sink = ansiSink
	}

	if simulate {
		err = lwmd.Simulate(lwmd.SimulateRequest{
			Reader:    reader,
			Sink:      sink,
			ChunkSize: simChunkSize,
			Delay:     simDelay,
			Options:   []lwmd.Option{lwmd.WithFlushOnWrite(true)},
		})
	} else {
		err = lwmd.Parse(lwmd.ParseRequest{
			Reader: reader,
			Sink:   sink,
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}
	if ansiSink != nil {
		if err := ansiSink.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "flush: %v\n", err)
			os.Exit(1)
		}
	}
	if htmlMode {
		fmt.Fprintln(writer)
	}
}

func printThemes() {
	for _, name := range lwmd.AvailableThemes() {
		fmt.Fprintln(os.Stdout, name)
	}
}

func resolveWidth(width int) int {
	if width > 0 {
		return width
	}
	return terminalWidth(defaultWidth)
}

func terminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if w, err := strconvAtoi(value); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

type inputSource struct {
	open func() (io.Reader, io.Closer, error)
}

type multiInputReader struct {
	sources   []inputSource
	idx       int
	cur       io.Reader
	curCloser io.Closer
	closed    bool
}

func (m *multiInputReader) Read(p []byte) (int, error) {
	for {
		if m.closed {
			return 0, io.EOF
		}
		if m.cur == nil {
			if m.idx >= len(m.sources) {
				m.closed = true
				return 0, io.EOF
			}
			reader, closer, err := m.sources[m.idx].open()
			if err != nil {
				return 0, err
			}
			m.cur = reader
			m.curCloser = closer
			m.idx++
		}
		n, err := m.cur.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			if m.curCloser != nil {
				_ = m.curCloser.Close()
			}
			m.cur = nil
			m.curCloser = nil
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (m *multiInputReader) Close() error {
	m.closed = true
	if m.curCloser != nil {
		return m.curCloser.Close()
	}
	return nil
}

func openInputs(args []string) (io.Reader, io.Closer, error) {
	if len(args) == 0 {
		return os.Stdin, nil, nil
	}
	sources := make([]inputSource, 0, len(args))
	for _, raw := range args {
		src, err := makeInputSource(raw)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	return &multiInputReader{sources: sources}, nil, nil
}

func makeInputSource(raw string) (inputSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inputSource{}, fmt.Errorf("empty input argument")
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openURL(raw)
			}}, nil
		case "file":
			path := u.Path
			if path == "" {
				path = u.Host
			}
			if unescaped, err := url.PathUnescape(path); err == nil {
				path = unescaped
			}
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openFile(path)
			}}, nil
		}
	}
	return inputSource{open: func() (io.Reader, io.Closer, error) {
		return openFile(raw)
	}}, nil
}

func openURL(raw string) (io.Reader, io.Closer, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, raw, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("http %s: %s", raw, resp.Status)
	}
	return resp.Body, resp.Body, nil
}

func openFile(path string) (io.Reader, io.Closer, error) {
	clean := normalizePath(path)
	f, err := os.Open(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func resolveOutput(path string) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return os.Stdout, nil, nil
	}
	clean := normalizePath(path)
	dir := filepath.Dir(clean)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		return abs
	}
	return path
}

func strconvAtoi(value string) (int, error) {
	var n int
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, fmt.Errorf("invalid int")
		}
		n = n*10 + int(value[i]-'0')
	}
	return n, nil
}
