package lwmd

// BlockKind identifies the structural element named by an output command.
type BlockKind uint8

const (
	// KindNone is the zero value; it is never emitted.
	KindNone BlockKind = iota
	// KindHeading1 through KindHeading6 are heading containers.
	KindHeading1
	KindHeading2
	KindHeading3
	KindHeading4
	KindHeading5
	KindHeading6
	// KindRule is a horizontal rule, emitted as a void element.
	KindRule
	// KindEmphasis is an emphasized inline span.
	KindEmphasis
	// KindStrong is a strong inline span.
	KindStrong
	// KindStrongEmphasis is a combined strong+emphasized inline span.
	KindStrongEmphasis
	// KindUnderline is an underlined inline span.
	KindUnderline
	// KindStrikethrough is a struck-through inline span.
	KindStrikethrough
	// KindCodeSpan is an inline code span; its contents are literal.
	KindCodeSpan
	// KindCodeBlock is a fenced code block; its contents are literal.
	KindCodeBlock
)

var blockKindNames = [...]string{
	KindNone:           "none",
	KindHeading1:       "h1",
	KindHeading2:       "h2",
	KindHeading3:       "h3",
	KindHeading4:       "h4",
	KindHeading5:       "h5",
	KindHeading6:       "h6",
	KindRule:           "hr",
	KindEmphasis:       "em",
	KindStrong:         "strong",
	KindStrongEmphasis: "strong-em",
	KindUnderline:      "u",
	KindStrikethrough:  "s",
	KindCodeSpan:       "code",
	KindCodeBlock:      "codeblock",
}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "invalid"
}

// IsHeading reports whether k is one of the six heading kinds.
func (k BlockKind) IsHeading() bool {
	return k >= KindHeading1 && k <= KindHeading6
}

func headingKind(level int) BlockKind {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return KindHeading1 + BlockKind(level-1)
}

// Sink receives structural rendering commands from the parser, in order.
// The parser never inspects rendered output; a Sink may build a tree, write
// a terminal, or serialize a string. AppendText targets the innermost open
// block. Commands are final: the parser never retracts one.
type Sink interface {
	OpenBlock(kind BlockKind) error
	CloseBlock() error
	InsertVoid(kind BlockKind) error
	AppendText(text string) error
}
