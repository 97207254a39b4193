package lwmd

import (
	"errors"
	"io"
	"strings"
)

var htmlTags = map[BlockKind][2]string{
	KindHeading1:       {"<h1>", "</h1>"},
	KindHeading2:       {"<h2>", "</h2>"},
	KindHeading3:       {"<h3>", "</h3>"},
	KindHeading4:       {"<h4>", "</h4>"},
	KindHeading5:       {"<h5>", "</h5>"},
	KindHeading6:       {"<h6>", "</h6>"},
	KindEmphasis:       {"<em>", "</em>"},
	KindStrong:         {"<strong>", "</strong>"},
	KindStrongEmphasis: {"<strong><em>", "</em></strong>"},
	KindUnderline:      {"<u>", "</u>"},
	KindStrikethrough:  {"<s>", "</s>"},
	KindCodeSpan:       {"<code>", "</code>"},
	KindCodeBlock:      {"<pre><code>", "</code></pre>"},
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// HTMLSink serializes structural commands to an HTML string. It is a
// non-rendering Sink: no tree is built, tags are written in command order.
type HTMLSink struct {
	w    io.Writer
	open []BlockKind

	openArr [8]BlockKind
}

// NewHTMLSink returns an HTMLSink writing to w.
func NewHTMLSink(w io.Writer) *HTMLSink {
	s := &HTMLSink{w: w}
	s.open = s.openArr[:0]
	return s
}

// OpenBlock writes the opening tag for kind and makes it the insertion
// target.
func (s *HTMLSink) OpenBlock(kind BlockKind) error {
	tags, ok := htmlTags[kind]
	if !ok {
		return errors.New("html sink: no tag for kind " + kind.String())
	}
	s.open = append(s.open, kind)
	_, err := io.WriteString(s.w, tags[0])
	return err
}

// CloseBlock writes the closing tag of the innermost open block.
func (s *HTMLSink) CloseBlock() error {
	if len(s.open) == 0 {
		return errors.New("html sink: close without open block")
	}
	kind := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]
	_, err := io.WriteString(s.w, htmlTags[kind][1])
	return err
}

// InsertVoid writes a void element.
func (s *HTMLSink) InsertVoid(kind BlockKind) error {
	if kind != KindRule {
		return errors.New("html sink: no void element for kind " + kind.String())
	}
	_, err := io.WriteString(s.w, "<hr>")
	return err
}

// AppendText writes escaped text into the innermost open block.
func (s *HTMLSink) AppendText(text string) error {
	if text == "" {
		return nil
	}
	_, err := htmlEscaper.WriteString(s.w, text)
	return err
}
