package lwmd

import (
	"io"
	"strings"

	"github.com/muesli/reflow/ansi"
)

// ANSISink renders structural commands as styled terminal output, hard
// wrapping words at a fixed printable width. Code block contents are
// written verbatim and never wrapped.
type ANSISink struct {
	w      io.Writer
	width  int
	styles Styles
	open   []BlockKind
	col    int
	word   strings.Builder
	wrote  bool

	openArr [8]BlockKind
}

// NewANSISink returns an ANSISink writing to w. A width of zero or less
// disables wrapping. A nil theme uses the default theme.
func NewANSISink(w io.Writer, width int, t Theme) *ANSISink {
	if t == nil {
		t = DefaultTheme()
	}
	s := &ANSISink{w: w, width: width, styles: t.Styles()}
	s.open = s.openArr[:0]
	return s
}

func (s *ANSISink) styleOf(kind BlockKind) Style {
	switch kind {
	case KindHeading1, KindHeading2, KindHeading3, KindHeading4, KindHeading5, KindHeading6:
		return s.styles.Heading[kind-KindHeading1]
	case KindEmphasis:
		return s.styles.Emphasis
	case KindStrong:
		return s.styles.Strong
	case KindStrongEmphasis:
		return s.styles.StrongEmphasis
	case KindUnderline:
		return s.styles.Underline
	case KindStrikethrough:
		return s.styles.Strikethrough
	case KindCodeSpan:
		return s.styles.CodeSpan
	case KindCodeBlock:
		return s.styles.CodeBlock
	case KindRule:
		return s.styles.Rule
	default:
		return s.styles.Text
	}
}

func (s *ANSISink) stylePrefix() string {
	var b strings.Builder
	b.WriteString(s.styles.Text.Prefix)
	for _, kind := range s.open {
		b.WriteString(s.styleOf(kind).Prefix)
	}
	return b.String()
}

func (s *ANSISink) inCodeBlock() bool {
	return len(s.open) > 0 && s.open[len(s.open)-1] == KindCodeBlock
}

func (s *ANSISink) write(text string) error {
	if text == "" {
		return nil
	}
	s.wrote = true
	_, err := io.WriteString(s.w, text)
	return err
}

func (s *ANSISink) newline() error {
	s.col = 0
	return s.write("\n")
}

// flushWord emits the pending word, breaking the line first when it would
// not fit at the current column.
func (s *ANSISink) flushWord() error {
	if s.word.Len() == 0 {
		return nil
	}
	word := s.word.String()
	s.word.Reset()
	w := ansi.PrintableRuneWidth(word)
	if s.col > 0 {
		if s.width > 0 && s.col+1+w > s.width {
			if err := s.newline(); err != nil {
				return err
			}
		} else {
			if err := s.write(" "); err != nil {
				return err
			}
			s.col++
		}
	}
	if prefix := s.stylePrefix(); prefix != "" {
		if err := s.write(prefix + word + ansiReset); err != nil {
			return err
		}
	} else if err := s.write(word); err != nil {
		return err
	}
	s.col += w
	return nil
}

// OpenBlock starts a block; headings and code blocks begin on their own
// line, separated from previous output.
func (s *ANSISink) OpenBlock(kind BlockKind) error {
	if kind.IsHeading() || kind == KindCodeBlock {
		if err := s.flushWord(); err != nil {
			return err
		}
		if s.col > 0 {
			if err := s.newline(); err != nil {
				return err
			}
		}
		if s.wrote {
			if err := s.newline(); err != nil {
				return err
			}
		}
	}
	s.open = append(s.open, kind)
	return nil
}

// CloseBlock ends the innermost open block.
func (s *ANSISink) CloseBlock() error {
	if len(s.open) == 0 {
		return nil
	}
	kind := s.open[len(s.open)-1]
	if err := s.flushWord(); err != nil {
		return err
	}
	s.open = s.open[:len(s.open)-1]
	if kind.IsHeading() || kind == KindCodeBlock {
		if s.col > 0 {
			return s.newline()
		}
	}
	return nil
}

// InsertVoid renders a void element; a rule becomes a styled line of dashes.
func (s *ANSISink) InsertVoid(kind BlockKind) error {
	if kind != KindRule {
		return nil
	}
	if err := s.flushWord(); err != nil {
		return err
	}
	if s.col > 0 {
		if err := s.newline(); err != nil {
			return err
		}
	}
	width := s.width
	if width <= 0 {
		width = 80
	}
	line := strings.Repeat("─", width)
	if prefix := s.styles.Rule.Prefix; prefix != "" {
		line = prefix + line + ansiReset
	}
	if err := s.write(line); err != nil {
		return err
	}
	return s.newline()
}

// AppendText adds text to the innermost open block, word wrapping outside
// code blocks.
func (s *ANSISink) AppendText(text string) error {
	if s.inCodeBlock() {
		return s.appendVerbatim(text)
	}
	for _, r := range text {
		switch r {
		case '\n', ' ', '\t':
			if err := s.flushWord(); err != nil {
				return err
			}
		default:
			s.word.WriteRune(r)
		}
	}
	return nil
}

func (s *ANSISink) appendVerbatim(text string) error {
	prefix := s.stylePrefix()
	for text != "" {
		i := strings.IndexByte(text, '\n')
		line := text
		if i >= 0 {
			line = text[:i]
		}
		if line != "" {
			styled := line
			if prefix != "" {
				styled = prefix + line + ansiReset
			}
			if err := s.write(styled); err != nil {
				return err
			}
			s.col += ansi.PrintableRuneWidth(line)
		}
		if i < 0 {
			break
		}
		if err := s.newline(); err != nil {
			return err
		}
		text = text[i+1:]
	}
	return nil
}

// Flush writes any pending word; call it after the final command.
func (s *ANSISink) Flush() error {
	if err := s.flushWord(); err != nil {
		return err
	}
	if s.col > 0 {
		return s.newline()
	}
	return nil
}
