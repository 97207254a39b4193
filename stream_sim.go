package lwmd

import (
	"bufio"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// SimulateRequest configures Simulate.
type SimulateRequest struct {
	Reader    io.Reader
	Sink      Sink
	ChunkSize int
	Delay     time.Duration
	Options   []Option
}

// Simulate reads a document from Reader and feeds it to the parser in
// fixed-size rune chunks with a delay between them. This is intended for
// exercising fragment-boundary behavior at inference token timing.
func Simulate(req SimulateRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("simulate: Reader is nil")
	}
	if req.Sink == nil {
		return fmt.Errorf("simulate: Sink is nil")
	}
	if req.ChunkSize <= 0 {
		return fmt.Errorf("simulate: ChunkSize must be > 0")
	}
	parser := parserPool.Get().(*Parser)
	parser.Reset(req.Sink, req.Options...)
	reader := readerPool.Get().(*bufio.Reader)
	reader.Reset(req.Reader)
	var smallBuf [256]rune
	buf := smallBuf[:0]
	if req.ChunkSize > len(smallBuf) {
		buf = make([]rune, 0, req.ChunkSize)
	}
	var retErr error
	if err := parser.Write(""); err != nil {
		retErr = fmt.Errorf("simulate: %w", err)
		goto done
	}
	for {
		r, size, err := reader.ReadRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			retErr = fmt.Errorf("simulate: read: %w", err)
			goto done
		}
		if r == utf8.RuneError && size == 1 {
			retErr = fmt.Errorf("simulate: %w", ErrInvalidUTF8)
			goto done
		}
		if r == 0 {
			retErr = fmt.Errorf("simulate: %w", ErrBinaryInput)
			goto done
		}
		if isControlRune(r) {
			continue
		}
		buf = append(buf, r)
		if len(buf) >= req.ChunkSize {
			if err := parser.Write(string(buf)); err != nil {
				retErr = fmt.Errorf("simulate: write: %w", err)
				goto done
			}
			buf = buf[:0]
			if req.Delay > 0 {
				time.Sleep(req.Delay)
			}
		}
	}
	if len(buf) > 0 {
		if err := parser.Write(string(buf)); err != nil {
			retErr = fmt.Errorf("simulate: write: %w", err)
			goto done
		}
	}
	if err := parser.End(); err != nil {
		retErr = fmt.Errorf("simulate: %w", err)
	}
done:
	parser.Reset(nil)
	parserPool.Put(parser)
	reader.Reset(nil)
	readerPool.Put(reader)
	return retErr
}
