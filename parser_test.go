package lwmd

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sanity-io/litter"
)

// commandSink records the structural command log. Adjacent AppendText
// commands coalesce, so comparisons are insensitive to fragment granularity.
type commandSink struct {
	cmds []string
}

func (c *commandSink) OpenBlock(kind BlockKind) error {
	c.cmds = append(c.cmds, "open "+kind.String())
	return nil
}

func (c *commandSink) CloseBlock() error {
	c.cmds = append(c.cmds, "close")
	return nil
}

func (c *commandSink) InsertVoid(kind BlockKind) error {
	c.cmds = append(c.cmds, "void "+kind.String())
	return nil
}

func (c *commandSink) AppendText(text string) error {
	if n := len(c.cmds); n > 0 && strings.HasPrefix(c.cmds[n-1], "text ") {
		c.cmds[n-1] += text
		return nil
	}
	c.cmds = append(c.cmds, "text "+text)
	return nil
}

// rawSink records commands without coalescing text.
type rawSink struct {
	cmds []string
}

func (r *rawSink) OpenBlock(kind BlockKind) error {
	r.cmds = append(r.cmds, "open "+kind.String())
	return nil
}
func (r *rawSink) CloseBlock() error {
	r.cmds = append(r.cmds, "close")
	return nil
}

func (r *rawSink) InsertVoid(kind BlockKind) error {
	r.cmds = append(r.cmds, "void "+kind.String())
	return nil
}

func (r *rawSink) AppendText(text string) error {
	r.cmds = append(r.cmds, "text "+text)
	return nil
}

func commandLog(t *testing.T, src string, opts ...Option) []string {
	t.Helper()
	sink := &commandSink{}
	if err := Convert(src, sink, opts...); err != nil {
		t.Fatalf("convert %q: %v", src, err)
	}
	return sink.cmds
}

func equalCommands(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func checkCommands(t *testing.T, src string, want []string) {
	t.Helper()
	got := commandLog(t, src)
	if !equalCommands(got, want) {
		t.Fatalf("commands for %q:\ngot  %s\nwant %s", src, litter.Sdump(got), litter.Sdump(want))
	}
}

func TestPlainText(t *testing.T) {
	checkCommands(t, "hello world", []string{"text hello world"})
	checkCommands(t, "line one\nline two\n", []string{"text line one\nline two\n"})
}

func TestHeadings(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"# Title\nbody\n", []string{"open h1", "text Title", "close", "text body\n"}},
		{"### deep", []string{"open h3", "text deep", "close"}},
		{"####### over", []string{"open h6", "text over", "close"}},
		{"#abc", []string{"text #abc"}},
		{"##", []string{"text ##"}},
		{"#\n", []string{"open h1", "close"}},
		{"## \n", []string{"open h2", "close"}},
		{"x # y", []string{"text x # y"}},
		{"# a *b*\n", []string{"open h1", "text a ", "open em", "text b", "close", "close"}},
	}
	for _, tc := range cases {
		checkCommands(t, tc.src, tc.want)
	}
}

func TestRules(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"---\n", []string{"void hr"}},
		{"***\nx", []string{"void hr", "text x"}},
		{"___\n", []string{"void hr"}},
		{"----------\n", []string{"void hr"}},
		{"--\n", []string{"text --\n"}},
		{"---", []string{"text ---"}},
		{"a\n---\nb", []string{"text a\n", "void hr", "text b"}},
		{"- - x\n", []string{"text - - x\n"}},
		{"a ---\n", []string{"text a ---\n"}},
	}
	for _, tc := range cases {
		checkCommands(t, tc.src, tc.want)
	}
}

func TestEmphasis(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"*word*", []string{"open em", "text word", "close"}},
		{"**bold** x", []string{"open strong", "text bold", "close", "text  x"}},
		{"***all*** ", []string{"open strong-em", "text all", "close", "text  "}},
		{"__w__ z", []string{"open u", "text w", "close", "text  z"}},
		{"~~d~~", []string{"open s", "text d", "close"}},
		{"--d--", []string{"open s", "text d", "close"}},
		{"a ~~x~~ b", []string{"text a ", "open s", "text x", "close", "text  b"}},
		// Unmatched and mismatched runs degrade to literal text.
		{"a *b", []string{"text a *b"}},
		{"**a*", []string{"text **a*"}},
		{"*a\nb*", []string{"text *a\nb*"}},
		// Nesting and overlap.
		{"*a **b** c*", []string{"open em", "text a ", "open strong", "text b", "close", "text  c", "close"}},
		{"*a _b* c_\n", []string{"open em", "text a _b", "close", "text  c_\n"}},
		{"*x ~~y* z", []string{"open em", "text x ~~y", "close", "text  z"}},
		// An inner pair confirmed inside an unresolved outer run is withheld
		// until the region resolves, at end of line or end of stream.
		{"*a **b** c", []string{"text *a ", "open strong", "text b", "close", "text  c"}},
		{"*a **b** \nx", []string{"text *a ", "open strong", "text b", "close", "text  \nx"}},
	}
	for _, tc := range cases {
		checkCommands(t, tc.src, tc.want)
	}
}

func TestInlineCode(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"a `b` c", []string{"text a ", "open code", "text b", "close", "text  c"}},
		{"`a`b", []string{"open code", "text a", "close", "text b"}},
		{"``x``", []string{"open code", "text x", "close"}},
		{"``a`b``", []string{"open code", "text a`b", "close"}},
		{"x `y`", []string{"text x ", "open code", "text y", "close"}},
		// Newline or end of stream before the closing run aborts to literal.
		{"`ab\ncd", []string{"text `ab\ncd"}},
		{"`ab", []string{"text `ab"}},
		// Marker characters inside a code span are literal content.
		{"`*not em*`", []string{"open code", "text *not em*", "close"}},
	}
	for _, tc := range cases {
		checkCommands(t, tc.src, tc.want)
	}
}

func TestCodeSpanInsideModifierRegion(t *testing.T) {
	// The code span confirms while an outer run is unresolved; its commands
	// stay ordered within the withheld region.
	checkCommands(t, "*a `b` c*", []string{
		"open em", "text a ", "open code", "text b", "close", "text  c", "close",
	})
	checkCommands(t, "*a `b` c", []string{
		"text *a ", "open code", "text b", "close", "text  c",
	})
}

func TestCodeBlock(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"```\nhi\n```\n", []string{"open codeblock", "text hi\n", "close"}},
		{"```\ncode", []string{"open codeblock", "text code", "close"}},
		{"```\na\n``\nb\n```\n", []string{"open codeblock", "text a\n``\nb\n", "close"}},
		// A closing fence must stand alone on its line.
		{"```\nx\n``` y\n", []string{"open codeblock", "text x\n``` y\n", "close"}},
		// Anything after the opening run falls back to the inline path.
		{"```go\nx\n```\n", []string{"text ```go\nx\n", "open codeblock", "close"}},
	}
	for _, tc := range cases {
		checkCommands(t, tc.src, tc.want)
	}
}

var invarianceDocs = []string{
	"# Title\nplain *em* **st** text\n",
	"intro\n---\n~~gone~~ and `code` here",
	"*a **b** c* tail\n```\nfence body\n```\nafter",
	"##no heading\n__under__ *a _b* c_\n",
	"héadings änd ünicode *émphasis* déjà `vu`\n",
	"``a`b`` *x\n# h\n",
}

// TestStreamingInvariance verifies that fragment boundaries never change the
// command log: one-shot, every two-way split, and a fixed three-way split
// must all agree.
func TestStreamingInvariance(t *testing.T) {
	for _, src := range invarianceDocs {
		want := commandLog(t, src)
		for i := 1; i < len(src); i++ {
			if !utf8.RuneStart(src[i]) {
				continue
			}
			sink := &commandSink{}
			p := NewParser(sink)
			if err := p.Write(src[:i]); err != nil {
				t.Fatalf("write %q[:%d]: %v", src, i, err)
			}
			if err := p.Write(src[i:]); err != nil {
				t.Fatalf("write %q[%d:]: %v", src, i, err)
			}
			if err := p.End(); err != nil {
				t.Fatalf("end %q split %d: %v", src, i, err)
			}
			if !equalCommands(sink.cmds, want) {
				t.Fatalf("split %d of %q:\ngot  %s\nwant %s", i, src, litter.Sdump(sink.cmds), litter.Sdump(want))
			}
		}
		for i := 1; i+1 < len(src); i += 3 {
			j := i + (len(src)-i)/2
			if !utf8.RuneStart(src[i]) || j <= i || j >= len(src) || !utf8.RuneStart(src[j]) {
				continue
			}
			sink := &commandSink{}
			p := NewParser(sink)
			for _, frag := range []string{src[:i], src[i:j], src[j:]} {
				if err := p.Write(frag); err != nil {
					t.Fatalf("write fragment of %q: %v", src, err)
				}
			}
			if err := p.End(); err != nil {
				t.Fatalf("end %q splits %d,%d: %v", src, i, j, err)
			}
			if !equalCommands(sink.cmds, want) {
				t.Fatalf("splits %d,%d of %q:\ngot  %s\nwant %s", i, j, src, litter.Sdump(sink.cmds), litter.Sdump(want))
			}
		}
	}
}

// TestStreamingInvarianceRandomPartitions replays each document as a fixed
// pseudo-random sequence of fragments, covering many-way splits the
// exhaustive two-way test does not reach.
func TestStreamingInvarianceRandomPartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, src := range invarianceDocs {
		want := commandLog(t, src)
		for round := 0; round < 20; round++ {
			sink := &commandSink{}
			p := NewParser(sink)
			rest := src
			for len(rest) > 0 {
				n := 1 + rng.Intn(4)
				if n > len(rest) {
					n = len(rest)
				}
				for n < len(rest) && !utf8.RuneStart(rest[n]) {
					n++
				}
				if err := p.Write(rest[:n]); err != nil {
					t.Fatalf("write fragment of %q: %v", src, err)
				}
				rest = rest[n:]
			}
			if err := p.End(); err != nil {
				t.Fatalf("end %q round %d: %v", src, round, err)
			}
			if !equalCommands(sink.cmds, want) {
				t.Fatalf("round %d of %q:\ngot  %s\nwant %s", round, src, litter.Sdump(sink.cmds), litter.Sdump(want))
			}
		}
	}
}

// TestResetIsolatesDocuments parses D, then a different document, then D
// again on the same instance; the first and third logs must match.
func TestResetIsolatesDocuments(t *testing.T) {
	const doc = "# One\n*two* `three`\n---\n"
	const other = "```\nunrelated **content**\n"

	first := &commandSink{}
	p := NewParser(first)
	if err := p.Write(doc); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end first: %v", err)
	}

	between := &commandSink{}
	p.Reset(between)
	if err := p.Write(other); err != nil {
		t.Fatalf("write between: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end between: %v", err)
	}

	third := &commandSink{}
	p.Reset(third)
	if err := p.Write(doc); err != nil {
		t.Fatalf("write third: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end third: %v", err)
	}

	if !equalCommands(first.cmds, third.cmds) {
		t.Fatalf("logs diverged across reset:\nfirst %s\nthird %s", litter.Sdump(first.cmds), litter.Sdump(third.cmds))
	}
}

// TestResetMidDocument abandons a half-consumed document; nothing from it may
// leak into the next one.
func TestResetMidDocument(t *testing.T) {
	sink := &commandSink{}
	p := NewParser(sink)
	if err := p.Write("# half a head"); err != nil {
		t.Fatalf("write: %v", err)
	}
	next := &commandSink{}
	p.Reset(next)
	if err := p.Write("clean"); err != nil {
		t.Fatalf("write after reset: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end after reset: %v", err)
	}
	want := []string{"text clean"}
	if !equalCommands(next.cmds, want) {
		t.Fatalf("state leaked across reset: %s", litter.Sdump(next.cmds))
	}
}

func TestFlushOnWriteGranularity(t *testing.T) {
	sink := &rawSink{}
	p := NewParser(sink, WithFlushOnWrite(true))
	if err := p.Write("hello "); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(sink.cmds) == 0 || sink.cmds[0] != "text hello " {
		t.Fatalf("expected first fragment flushed eagerly, got %s", litter.Sdump(sink.cmds))
	}
	if err := p.Write("world"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end: %v", err)
	}

	want := commandLog(t, "hello world")
	coalesced := &commandSink{}
	for _, cmd := range sink.cmds {
		if strings.HasPrefix(cmd, "text ") {
			_ = coalesced.AppendText(strings.TrimPrefix(cmd, "text "))
		} else {
			coalesced.cmds = append(coalesced.cmds, cmd)
		}
	}
	if !equalCommands(coalesced.cmds, want) {
		t.Fatalf("flush-on-write changed command structure:\ngot  %s\nwant %s", litter.Sdump(coalesced.cmds), litter.Sdump(want))
	}
}

// TestFlushOnWriteHoldsLockedText checks that eager flushing never leaks
// characters still under a pending block decision.
func TestFlushOnWriteHoldsLockedText(t *testing.T) {
	sink := &rawSink{}
	p := NewParser(sink, WithFlushOnWrite(true))
	if err := p.Write("##"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(sink.cmds) != 0 {
		t.Fatalf("locked text escaped: %s", litter.Sdump(sink.cmds))
	}
	if err := p.Write(" Hi"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	want := []string{"open h2", "text Hi", "close"}
	if !equalCommands(sink.cmds, want) {
		t.Fatalf("commands: %s", litter.Sdump(sink.cmds))
	}
}

func TestEndWithoutDocument(t *testing.T) {
	p := NewParser(&commandSink{})
	if err := p.End(); err == nil {
		t.Fatalf("expected error from End without a document")
	}
}

func TestWriteWithoutSink(t *testing.T) {
	p := NewParser(nil)
	if err := p.Write("x"); err == nil {
		t.Fatalf("expected error from Write without a sink")
	}
}
