package lwmd

import (
	"sort"
	"strings"
)

// chunkStore holds the fragments of one document in arrival order, indexed
// by logical byte offset. Fragments are immutable once appended and are
// discarded in bulk at reset; the parser consumes each fragment exactly once
// and comes back only through read.
type chunkStore struct {
	frags []string
	offs  []int // logical start offset of each fragment
	total int

	fragsArr [16]string
	offsArr  [16]int
}

func (c *chunkStore) init() {
	if c.frags == nil {
		c.frags = c.fragsArr[:0]
		c.offs = c.offsArr[:0]
	}
}

func (c *chunkStore) append(frag string) {
	c.init()
	c.frags = append(c.frags, frag)
	c.offs = append(c.offs, c.total)
	c.total += len(frag)
}

func (c *chunkStore) len() int { return c.total }

// read returns the text between logical offsets start and end. When the
// range lies within one fragment the result is a substring view; only a
// range spanning fragment boundaries concatenates.
func (c *chunkStore) read(start, end int) string {
	if start < 0 || start > end || end > c.total {
		panic("lwmd: chunk read out of range")
	}
	if start == end {
		return ""
	}
	i := sort.SearchInts(c.offs, start+1) - 1
	if end <= c.offs[i]+len(c.frags[i]) {
		return c.frags[i][start-c.offs[i] : end-c.offs[i]]
	}
	var b strings.Builder
	b.Grow(end - start)
	for ; i < len(c.frags) && start < end; i++ {
		frag, off := c.frags[i], c.offs[i]
		hi := len(frag)
		if end-off < hi {
			hi = end - off
		}
		b.WriteString(frag[start-off : hi])
		start = off + hi
	}
	return b.String()
}

func (c *chunkStore) reset() {
	c.init()
	for i := range c.frags {
		c.frags[i] = ""
	}
	c.frags = c.frags[:0]
	c.offs = c.offs[:0]
	c.total = 0
}
