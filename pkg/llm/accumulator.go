package llm

import "strings"

// LineDecoder decodes one newline-delimited record.
// ok reports whether the line was a complete, valid record.
type LineDecoder func(line string) (delta string, done bool, ok bool)

// StreamAccumulator reassembles a chunked stream into text.
// buffer holds the unterminated tail that did not decode yet, full holds every
// delta accepted so far. One accumulator belongs to exactly one attempt.
type StreamAccumulator struct {
	buffer string
	full   strings.Builder
}

// Feed appends chunk to the pending buffer and decodes every complete line.
// emit receives each non-empty delta in order. Feed returns true once a record
// with the done flag was decoded; remaining lines of that round are discarded.
//
// A newline-terminated line that fails to decode is malformed and dropped.
// The trailing segment is kept for the next round when it does not decode,
// since it may be a record cut at the chunk boundary.
func (a *StreamAccumulator) Feed(chunk string, decode LineDecoder, emit func(delta string)) bool {
	lines := strings.Split(a.buffer+chunk, "\n")
	a.buffer = ""

	last := len(lines) - 1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		delta, done, ok := decode(line)
		if !ok {
			if i == last {
				a.buffer = line
			}
			continue
		}
		if delta != "" {
			a.full.WriteString(delta)
			if emit != nil {
				emit(delta)
			}
		}
		if done {
			a.buffer = ""
			return true
		}
	}
	return false
}

// Finish decodes whatever is still buffered when the stream closes.
func (a *StreamAccumulator) Finish(decode LineDecoder, emit func(delta string)) bool {
	if a.buffer == "" {
		return false
	}
	pending := a.buffer
	a.buffer = ""
	done := a.Feed(pending, decode, emit)
	a.buffer = ""
	return done
}

// Full returns the text assembled so far.
func (a *StreamAccumulator) Full() string {
	return a.full.String()
}

// Buffered returns the pending, not yet decoded, tail.
func (a *StreamAccumulator) Buffered() string {
	return a.buffer
}
