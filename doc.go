// Package lwmd converts a lightweight Markdown dialect into structural
// rendering commands as text arrives.
//
// This package is built for streaming: input is appended in arbitrarily-sized
// fragments (or as one complete document) and the parser emits commands to an
// output Sink progressively, without ever re-scanning consumed input and
// without emitting a structural decision that later has to be undone. Text
// whose classification is still ambiguous (a run of # or - at line start, an
// unclosed emphasis run, an open code span) is withheld, bounded by the
// current line, until the next character or the end of the stream resolves it.
//
// Core properties:
//   - Fragment-at-a-time input; decisions are independent of fragment bounds
//   - Single forward pass; aborted markup re-classifies without re-reading
//   - Commands are final: no partial heading/rule/span is ever retracted
//   - Sinks are pluggable; HTML serialization and themed ANSI are built in
//
// Example:
//
//	html, err := lwmd.ToHTML("# Hello\nStreaming *markup* in, commands out.\n")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(html)
//
// For live streams, construct a Parser, call Write for each fragment as it
// arrives, and End when the stream is complete.
package lwmd
