package lwmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

var parserPool = sync.Pool{
	New: func() any {
		return &Parser{}
	},
}

var readerPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, 4096)
	},
}

// Option configures parsing behavior.
type Option func(*config)

type config struct {
	flushOnWrite bool
}

// WithFlushOnWrite enables a flush attempt after every written fragment, so
// confirmed text reaches the sink as soon as each fragment is consumed. The
// flush honors the lock; only AppendText granularity changes, never command
// order. Off by default.
func WithFlushOnWrite(enabled bool) Option {
	return func(cfg *config) {
		cfg.flushOnWrite = enabled
	}
}

// ParseRequest configures Parse.
type ParseRequest struct {
	Reader  io.Reader
	Sink    Sink
	Options []Option
}

// Parse reads a document from a byte stream and sends structural commands
// to a sink. Bytes are UTF-8 decoded before they reach the parser; a rune
// split across reads is carried over.
func Parse(req ParseRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("parse: reader is nil")
	}
	if req.Sink == nil {
		return fmt.Errorf("parse: sink is nil")
	}
	parser := parserPool.Get().(*Parser)
	reader := readerPool.Get().(*bufio.Reader)
	parser.Reset(req.Sink, req.Options...)
	reader.Reset(req.Reader)
	var buf [4096]byte
	var retErr error
	if err := parser.Write(""); err != nil {
		retErr = fmt.Errorf("parse: %w", err)
		goto done
	}
	for {
		n, err := reader.Read(buf[:])
		if n > 0 {
			if werr := parser.WriteBytes(buf[:n]); werr != nil {
				retErr = fmt.Errorf("parse: %w", werr)
				goto done
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			retErr = fmt.Errorf("parse: read: %w", err)
			goto done
		}
	}
	if err := parser.End(); err != nil {
		retErr = fmt.Errorf("parse: %w", err)
	}
done:
	parser.Reset(nil)
	parserPool.Put(parser)
	reader.Reset(nil)
	readerPool.Put(reader)
	return retErr
}

// Convert processes one complete document and ends the stream. It is the
// one-shot convenience over a pooled Parser.
func Convert(src string, sink Sink, opts ...Option) error {
	if sink == nil {
		return fmt.Errorf("convert: sink is nil")
	}
	parser := parserPool.Get().(*Parser)
	parser.Reset(sink, opts...)
	err := parser.Write(src)
	if err == nil {
		err = parser.End()
	}
	parser.Reset(nil)
	parserPool.Put(parser)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	return nil
}

// ToHTML converts one complete document to an HTML string.
func ToHTML(src string, opts ...Option) (string, error) {
	var b strings.Builder
	if err := Convert(src, NewHTMLSink(&b), opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteBytes decodes a raw byte fragment to text and appends it. Invalid
// byte sequences surface ErrInvalidUTF8 and a NUL byte surfaces
// ErrBinaryInput; control characters other than tab and newline are dropped
// before the text reaches the chunk store.
func (p *Parser) WriteBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.Grow(len(b) + utf8.UTFMax)
	for p.tailLen > 0 && len(b) > 0 {
		p.tail[p.tailLen] = b[0]
		p.tailLen++
		b = b[1:]
		if utf8.FullRune(p.tail[:p.tailLen]) {
			r, size := utf8.DecodeRune(p.tail[:p.tailLen])
			if r == utf8.RuneError && size == 1 {
				return ErrInvalidUTF8
			}
			if r == 0 {
				return ErrBinaryInput
			}
			if !isControlRune(r) {
				sb.WriteRune(r)
			}
			p.tailLen = 0
			break
		}
		if p.tailLen == utf8.UTFMax {
			return ErrInvalidUTF8
		}
	}
	for i := 0; i < len(b); {
		if !utf8.FullRune(b[i:]) {
			p.tailLen = copy(p.tail[:], b[i:])
			break
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return ErrInvalidUTF8
		}
		if r == 0 {
			return ErrBinaryInput
		}
		if !isControlRune(r) {
			sb.Write(b[i : i+size])
		}
		i += size
	}
	return p.Write(sb.String())
}
