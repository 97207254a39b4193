package lwmd

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ErrNoDocument reports a terminal or flush call without an active document.
var ErrNoDocument = errors.New("no active document")

// parserState enumerates the six mutually exclusive states of the machine.
// Every dispatch switch handles all of them; an impossible value panics.
type parserState uint8

const (
	stateNormal parserState = iota
	stateHeadingRun
	stateRuleRun
	stateModifierRun
	stateInlineCode
	stateCodeBlock
)

var parserStateNames = [...]string{
	stateNormal:      "normal",
	stateHeadingRun:  "heading-run",
	stateRuleRun:     "rule-run",
	stateModifierRun: "modifier-run",
	stateInlineCode:  "inline-code",
	stateCodeBlock:   "code-block",
}

func (s parserState) String() string {
	if int(s) < len(parserStateNames) {
		return parserStateNames[s]
	}
	return "invalid"
}

// modRun is one unresolved delimiter run on the modifier stack.
type modRun struct {
	marker rune
	length int
	from   int // logical offset of the first marker character
	to     int // logical offset just past the last marker character
}

// spanEvent is a confirmed inline span awaiting ordered emission: a matched
// pair of delimiter runs, or a closed code span. The marker runs themselves
// are never emitted as text.
type spanEvent struct {
	kind      BlockKind
	openFrom  int
	openTo    int
	closeFrom int
	closeTo   int
}

// Parser is the incremental lexer. It owns the chunk store for the current
// document and all continuation state, so processing is fully re-entrant
// across fragment boundaries. A Parser serves one logical document at a
// time; reuse for a new document goes through Reset (or End, which also
// clears state). Overlapping use from concurrent streams is a precondition
// violation and is not detected.
type Parser struct {
	sink         Sink
	flushOnWrite bool

	store chunkStore
	pos   int // logical position: next unconsumed byte offset
	start int // confirmed cursor: everything before it has been committed

	state        parserState
	lineStart    bool
	locked       bool
	active       bool
	pendingStart int // unconfirmed cursor; valid while a recognizer is active

	heading headingRun
	rule    ruleRun
	code    codeSpanRun

	// building modifier run
	curMarker rune
	curCount  int
	runFrom   int

	mods  []modRun
	pairs []spanEvent
	open  []BlockKind

	// UTF-8 tail carried between WriteBytes calls
	tail    [utf8.UTFMax]byte
	tailLen int

	modsArr  [16]modRun
	pairsArr [16]spanEvent
	openArr  [8]BlockKind
}

// NewParser returns a Parser that sends commands to sink.
func NewParser(sink Sink, opts ...Option) *Parser {
	p := &Parser{}
	p.Reset(sink, opts...)
	return p
}

// Reset discards all per-document state, including stored fragments, and
// binds the parser to sink for the next document. It is the batch entry
// point for reusing one instance across many independent documents.
func (p *Parser) Reset(sink Sink, opts ...Option) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	p.clearState()
	p.sink = sink
	p.flushOnWrite = cfg.flushOnWrite
}

func (p *Parser) clearState() {
	p.store.reset()
	p.pos = 0
	p.start = 0
	p.state = stateNormal
	p.lineStart = true
	p.locked = false
	p.active = false
	p.pendingStart = 0
	p.heading = headingRun{}
	p.rule = ruleRun{}
	p.code = codeSpanRun{}
	p.curMarker = 0
	p.curCount = 0
	p.runFrom = 0
	p.mods = p.modsArr[:0]
	p.pairs = p.pairsArr[:0]
	p.open = p.openArr[:0]
	p.tailLen = 0
}

// Write appends one text fragment and consumes it. The fragment must be
// whole UTF-8 text; byte input with possibly split runes goes through
// WriteBytes. With WithFlushOnWrite enabled, confirmed text is flushed once
// after the fragment is fully consumed, honoring the lock.
func (p *Parser) Write(fragment string) error {
	if p.sink == nil {
		return errors.New("write: parser has no sink")
	}
	p.active = true
	if fragment != "" {
		p.store.append(fragment)
		for i := 0; i < len(fragment); {
			r, size := utf8.DecodeRuneInString(fragment[i:])
			if r == utf8.RuneError && size == 1 {
				r = rune(fragment[i])
			}
			if err := p.step(r, size); err != nil {
				return err
			}
			i += size
		}
	}
	if p.flushOnWrite {
		return p.flushTo(p.pos)
	}
	return nil
}

// End terminates the current document. A block decision still pending at
// stream end is force-unlocked and flushed as plain text, never rendered as
// markup; unresolved inline state renders literally; open blocks are closed.
// All per-document state, including stored fragments, is discarded.
func (p *Parser) End() error {
	if !p.active {
		return fmt.Errorf("end: %w", ErrNoDocument)
	}
	if p.tailLen > 0 {
		p.clearState()
		return ErrInvalidUTF8
	}
	switch p.state {
	case stateHeadingRun, stateRuleRun:
		p.locked = false
		p.state = stateNormal
	case stateModifierRun:
		if err := p.completeRun(); err != nil {
			return err
		}
		p.state = stateNormal
	case stateInlineCode:
		if p.code.openComplete && p.code.closeTicks == p.code.openRun {
			if err := p.confirmCodeSpan(); err != nil {
				return err
			}
		}
		p.state = stateNormal
		p.code = codeSpanRun{}
	case stateCodeBlock:
		p.code = codeSpanRun{}
	case stateNormal:
	default:
		panic("lwmd: unhandled parser state " + p.state.String())
	}
	if len(p.pairs) > 0 {
		if err := p.emitRegion(p.pos); err != nil {
			return err
		}
	}
	p.mods = p.mods[:0]
	p.state = stateNormal
	if err := p.flushTo(p.pos); err != nil {
		return err
	}
	for len(p.open) > 0 {
		if err := p.closeBlock(); err != nil {
			return err
		}
	}
	p.clearState()
	return nil
}

// step consumes one character. A recognizer abort leaves the logical
// position at the aborting character and re-dispatches it in the same pass,
// so no character is physically re-read.
func (p *Parser) step(r rune, size int) error {
	for {
		again, err := p.dispatch(r, size)
		if err != nil {
			return err
		}
		if !again {
			break
		}
	}
	p.pos += size
	return nil
}

func (p *Parser) dispatch(r rune, size int) (bool, error) {
	switch p.state {
	case stateNormal:
		return p.stepNormal(r)
	case stateHeadingRun:
		return p.stepHeading(r, size)
	case stateRuleRun:
		return p.stepRule(r, size)
	case stateModifierRun:
		return p.stepModifier(r)
	case stateInlineCode:
		return p.stepInlineCode(r, size)
	case stateCodeBlock:
		return p.stepCodeBlock(r, size)
	}
	panic("lwmd: unhandled parser state " + p.state.String())
}

func (p *Parser) stepNormal(r rune) (bool, error) {
	if r == '\n' {
		return false, p.endLine(1)
	}
	if p.lineStart {
		p.lineStart = false
		switch {
		case r == '#':
			if err := p.flushTo(p.pos); err != nil {
				return false, err
			}
			p.locked = true
			p.pendingStart = p.pos
			p.heading = headingRun{count: 1}
			p.state = stateHeadingRun
			return false, nil
		case isRuleMarker(r):
			if err := p.flushTo(p.pos); err != nil {
				return false, err
			}
			p.locked = true
			p.pendingStart = p.pos
			p.rule = ruleRun{marker: r, count: 1}
			p.state = stateRuleRun
			return false, nil
		case r == '`':
			if err := p.flushTo(p.pos); err != nil {
				return false, err
			}
			p.pendingStart = p.pos
			p.code = codeSpanRun{openRun: 1, fenceCandidate: true}
			p.state = stateInlineCode
			return false, nil
		}
	}
	switch {
	case isEmphasisMarker(r):
		if err := p.flushTo(p.pos); err != nil {
			return false, err
		}
		p.pendingStart = p.pos
		p.runFrom = p.pos
		p.curMarker = r
		p.curCount = 1
		p.state = stateModifierRun
		return false, nil
	case r == '`':
		if err := p.flushTo(p.pos); err != nil {
			return false, err
		}
		p.pendingStart = p.pos
		p.code = codeSpanRun{openRun: 1}
		p.state = stateInlineCode
		return false, nil
	}
	return false, nil
}

// endLine handles a newline consumed in Normal state. Unresolved inline
// runs never survive a line boundary: confirmed spans are emitted, leftover
// runs degrade to literal text. An open heading closes here; its terminating
// newline is consumed structurally, every other newline is ordinary text.
func (p *Parser) endLine(size int) error {
	if len(p.pairs) > 0 {
		if err := p.emitRegion(p.pos); err != nil {
			return err
		}
	}
	p.mods = p.mods[:0]
	if n := len(p.open); n > 0 && p.open[n-1].IsHeading() {
		if err := p.flushTo(p.pos); err != nil {
			return err
		}
		if err := p.closeBlock(); err != nil {
			return err
		}
		p.start = p.pos + size
	}
	p.lineStart = true
	return nil
}

func (p *Parser) stepHeading(r rune, size int) (bool, error) {
	switch p.heading.feed(r) {
	case adviceContinue:
		return false, nil
	case adviceConfirm:
		p.locked = false
		p.state = stateNormal
		if err := p.openBlock(headingKind(p.heading.level())); err != nil {
			return false, err
		}
		p.start = p.pos + size // past the marker run and its terminator
		if r == '\n' {
			if err := p.closeBlock(); err != nil {
				return false, err
			}
			p.lineStart = true
		}
		return false, nil
	default:
		p.locked = false
		p.state = stateNormal
		return true, nil
	}
}

func (p *Parser) stepRule(r rune, size int) (bool, error) {
	switch p.rule.feed(r) {
	case adviceContinue:
		return false, nil
	case adviceConfirm:
		p.locked = false
		p.state = stateNormal
		if err := p.sink.InsertVoid(KindRule); err != nil {
			return false, err
		}
		p.start = p.pos + size
		p.lineStart = true
		return false, nil
	default:
		p.locked = false
		if p.rule.canHandOff() {
			// The accumulated run continues as a modifier run;
			// the aborting character is re-dispatched there.
			p.curMarker = p.rule.marker
			p.curCount = p.rule.count
			p.runFrom = p.pendingStart
			p.state = stateModifierRun
			return true, nil
		}
		p.state = stateNormal
		return true, nil
	}
}

func (p *Parser) stepModifier(r rune) (bool, error) {
	if r == p.curMarker {
		p.curCount++
		return false, nil
	}
	if err := p.completeRun(); err != nil {
		return false, err
	}
	if isEmphasisMarker(r) {
		p.pendingStart = p.pos
		p.runFrom = p.pos
		p.curMarker = r
		p.curCount = 1
		return false, nil
	}
	p.state = stateNormal
	return true, nil
}

// completeRun resolves the building delimiter run against the modifier
// stack. An equal (marker, length) entry confirms a span pair; entries above
// it are popped and render literally inside the span. A run with no partner,
// or one whose combination maps to no kind, is never confirmed alone.
func (p *Parser) completeRun() error {
	run := modRun{marker: p.curMarker, length: p.curCount, from: p.runFrom, to: p.runFrom + p.curCount}
	p.curCount = 0
	kind := spanKind(run.marker, run.length)
	if kind == KindNone {
		return nil
	}
	for i := len(p.mods) - 1; i >= 0; i-- {
		m := p.mods[i]
		if m.marker != run.marker || m.length != run.length {
			continue
		}
		p.pairs = append(p.pairs, spanEvent{
			kind:      kind,
			openFrom:  m.from,
			openTo:    m.to,
			closeFrom: run.from,
			closeTo:   run.to,
		})
		p.mods = p.mods[:i]
		if len(p.mods) == 0 {
			return p.emitRegion(run.to)
		}
		return nil
	}
	p.mods = append(p.mods, run)
	return nil
}

func (p *Parser) stepInlineCode(r rune, size int) (bool, error) {
	c := &p.code
	if !c.openComplete {
		switch {
		case r == '`':
			c.openRun++
			return false, nil
		case r == '\n':
			if c.fenceCandidate && c.openRun >= 3 {
				if err := p.openBlock(KindCodeBlock); err != nil {
					return false, err
				}
				p.start = p.pos + size
				p.code = codeSpanRun{}
				p.state = stateCodeBlock
				p.lineStart = true
				return false, nil
			}
			p.state = stateNormal
			p.code = codeSpanRun{}
			return true, nil
		default:
			c.openComplete = true
			c.contentFrom = p.pos
			return false, nil
		}
	}
	switch {
	case r == '`':
		if c.closeTicks == 0 {
			c.closeFrom = p.pos
		}
		c.closeTicks++
		return false, nil
	case r == '\n':
		if c.closeTicks == c.openRun {
			if err := p.confirmCodeSpan(); err != nil {
				return false, err
			}
			return true, nil
		}
		p.state = stateNormal
		p.code = codeSpanRun{}
		return true, nil
	default:
		if c.closeTicks == c.openRun {
			if err := p.confirmCodeSpan(); err != nil {
				return false, err
			}
			return true, nil
		}
		c.closeTicks = 0
		return false, nil
	}
}

func (p *Parser) confirmCodeSpan() error {
	c := &p.code
	ev := spanEvent{
		kind:      KindCodeSpan,
		openFrom:  p.pendingStart,
		openTo:    c.contentFrom,
		closeFrom: c.closeFrom,
		closeTo:   c.closeFrom + c.closeTicks,
	}
	p.state = stateNormal
	p.code = codeSpanRun{}
	if len(p.mods) > 0 {
		// Inside an unresolved modifier region: defer for ordered emission.
		p.pairs = append(p.pairs, ev)
		return nil
	}
	if err := p.sink.OpenBlock(KindCodeSpan); err != nil {
		return err
	}
	if ev.closeFrom > ev.openTo {
		if err := p.sink.AppendText(p.store.read(ev.openTo, ev.closeFrom)); err != nil {
			return err
		}
	}
	if err := p.sink.CloseBlock(); err != nil {
		return err
	}
	p.start = ev.closeTo
	return nil
}

func (p *Parser) stepCodeBlock(r rune, size int) (bool, error) {
	if r == '\n' {
		if p.code.closeTicks >= 3 {
			if err := p.flushTo(p.code.closeFrom); err != nil {
				return false, err
			}
			if err := p.closeBlock(); err != nil {
				return false, err
			}
			p.start = p.pos + size
			p.code = codeSpanRun{}
			p.state = stateNormal
			p.lineStart = true
			return false, nil
		}
		p.code.closeTicks = 0
		p.lineStart = true
		return false, nil
	}
	if r == '`' && (p.lineStart || p.code.closeTicks > 0) {
		if p.code.closeTicks == 0 {
			p.code.closeFrom = p.pos
		}
		p.code.closeTicks++
	} else {
		p.code.closeTicks = 0
	}
	p.lineStart = false
	return false, nil
}

// textLimit bounds how far confirmed text may flush: never past the start
// of an unresolved delimiter run, an open code span, or a closing-fence
// candidate. The bound is at most one line behind, since the modifier stack
// clears at every newline.
func (p *Parser) textLimit() int {
	limit := p.pos
	if len(p.mods) > 0 && p.mods[0].from < limit {
		limit = p.mods[0].from
	}
	switch p.state {
	case stateModifierRun:
		if p.runFrom < limit {
			limit = p.runFrom
		}
	case stateInlineCode:
		if p.pendingStart < limit {
			limit = p.pendingStart
		}
	case stateCodeBlock:
		if p.code.closeTicks > 0 && p.code.closeFrom < limit {
			limit = p.code.closeFrom
		}
	case stateNormal, stateHeadingRun, stateRuleRun:
	default:
		panic("lwmd: unhandled parser state " + p.state.String())
	}
	return limit
}

// flushTo commits plain text up to the given offset as an AppendText
// command. It is a no-op while a block-level decision is locked or when
// nothing is committable. Flushing is the only path by which plain text
// becomes visible output.
func (p *Parser) flushTo(to int) error {
	if p.locked {
		return nil
	}
	if lim := p.textLimit(); to > lim {
		to = lim
	}
	if to <= p.start {
		return nil
	}
	text := p.store.read(p.start, to)
	p.start = to
	return p.sink.AppendText(text)
}

// emitRegion commits the withheld span [start, to) in one ordered walk:
// plain text segments, confirmed span pairs (properly nested by
// construction), and literal leftovers from unmatched runs. Matched marker
// runs are skipped, never echoed as text.
func (p *Parser) emitRegion(to int) error {
	sort.SliceStable(p.pairs, func(i, j int) bool { return p.pairs[i].openFrom < p.pairs[j].openFrom })
	cur := p.start
	var openArr [8]spanEvent
	opened := openArr[:0]
	for _, ev := range p.pairs {
		for len(opened) > 0 && opened[len(opened)-1].closeFrom <= ev.openFrom {
			top := opened[len(opened)-1]
			opened = opened[:len(opened)-1]
			if err := p.appendRange(cur, top.closeFrom); err != nil {
				return err
			}
			if err := p.sink.CloseBlock(); err != nil {
				return err
			}
			cur = top.closeTo
		}
		if err := p.appendRange(cur, ev.openFrom); err != nil {
			return err
		}
		if err := p.sink.OpenBlock(ev.kind); err != nil {
			return err
		}
		if ev.kind == KindCodeSpan {
			if err := p.appendRange(ev.openTo, ev.closeFrom); err != nil {
				return err
			}
			if err := p.sink.CloseBlock(); err != nil {
				return err
			}
			cur = ev.closeTo
			continue
		}
		cur = ev.openTo
		opened = append(opened, ev)
	}
	for len(opened) > 0 {
		top := opened[len(opened)-1]
		opened = opened[:len(opened)-1]
		if err := p.appendRange(cur, top.closeFrom); err != nil {
			return err
		}
		if err := p.sink.CloseBlock(); err != nil {
			return err
		}
		cur = top.closeTo
	}
	if err := p.appendRange(cur, to); err != nil {
		return err
	}
	p.start = to
	p.pairs = p.pairs[:0]
	p.mods = p.mods[:0]
	return nil
}

func (p *Parser) appendRange(from, to int) error {
	if to <= from {
		return nil
	}
	return p.sink.AppendText(p.store.read(from, to))
}

func (p *Parser) openBlock(kind BlockKind) error {
	if err := p.sink.OpenBlock(kind); err != nil {
		return err
	}
	p.open = append(p.open, kind)
	return nil
}

func (p *Parser) closeBlock() error {
	if len(p.open) == 0 {
		return errors.New("close block: nothing open")
	}
	p.open = p.open[:len(p.open)-1]
	return p.sink.CloseBlock()
}
