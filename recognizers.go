package lwmd

// advice is a recognizer's verdict on one character.
type advice uint8

const (
	adviceContinue advice = iota
	adviceConfirm
	adviceAbort
)

// headingRun recognizes a line-start run of # markers. The run confirms as a
// heading of level min(6, count) when terminated by a space or newline;
// any other character aborts back to plain text.
type headingRun struct {
	count int
}

func (h *headingRun) feed(r rune) advice {
	switch r {
	case '#':
		h.count++
		return adviceContinue
	case ' ', '\n':
		return adviceConfirm
	default:
		return adviceAbort
	}
}

func (h *headingRun) level() int {
	if h.count > 6 {
		return 6
	}
	return h.count
}

// ruleRun recognizes a line-start run of rule-eligible markers. The same
// marker or a space continues the run; only marker characters count. A
// newline after more than two markers confirms a horizontal rule; anything
// else aborts. A space-free aborted run hands off to the modifier machine as
// a pre-existing run, so no character is re-read.
type ruleRun struct {
	marker   rune
	count    int
	sawSpace bool
}

func (rr *ruleRun) feed(r rune) advice {
	switch {
	case r == rr.marker:
		rr.count++
		return adviceContinue
	case r == ' ':
		rr.sawSpace = true
		return adviceContinue
	case r == '\n' && rr.count > 2:
		return adviceConfirm
	default:
		return adviceAbort
	}
}

func (rr *ruleRun) canHandOff() bool {
	return !rr.sawSpace && isEmphasisMarker(rr.marker)
}

// codeSpanRun tracks an inline code span from its opening backtick run. The
// span closes on a backtick run of exactly the opening length. A line-start
// opening run of three or more backticks terminated directly by a newline is
// a fence and opens a code block instead. A newline anywhere else aborts the
// span to literal text; unresolved inline state never survives a line.
type codeSpanRun struct {
	openRun        int
	fenceCandidate bool
	openComplete   bool
	contentFrom    int
	closeTicks     int
	closeFrom      int
}

func isRuleMarker(r rune) bool {
	switch r {
	case '-', '*', '_', '~':
		return true
	default:
		return false
	}
}

func isEmphasisMarker(r rune) bool {
	switch r {
	case '*', '_', '~', '-':
		return true
	default:
		return false
	}
}

// spanKind maps a matched delimiter run to its inline span kind. Pairs whose
// (marker, length) combination maps to no kind never match and render as
// literal text.
func spanKind(marker rune, length int) BlockKind {
	switch marker {
	case '*':
		switch length {
		case 1:
			return KindEmphasis
		case 2:
			return KindStrong
		case 3:
			return KindStrongEmphasis
		}
	case '_':
		switch length {
		case 1:
			return KindEmphasis
		case 2:
			return KindUnderline
		}
	case '~', '-':
		if length == 2 {
			return KindStrikethrough
		}
	}
	return KindNone
}
