package llm

import "strings"

// Reasoning boundary markers for models that inline their thinking in the
// answer stream instead of using a reasoning side channel.
const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// Splitter separates one raw delta stream into reasoning and answer
// sub-streams. Deltas already tagged as reasoning by the provider pass
// through untouched; untagged text is scanned for <thinking> marker pairs.
//
// A marker may arrive split across chunk boundaries, so the splitter holds
// back any trailing text that could still turn out to be a marker prefix
// (at most len(marker)-1 bytes) until the next chunk settles it.
//
// Not safe for concurrent use; one Splitter serves one stream.
type Splitter struct {
	inside  bool
	pending string
}

// NewSplitter returns a splitter in the outside state.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed consumes one raw delta and returns the classified deltas that are
// safe to forward now. Returned deltas preserve input order.
func (s *Splitter) Feed(d Delta) []Delta {
	if d.Reasoning {
		// Provider already separated reasoning; pass through.
		return []Delta{d}
	}
	if d.Content == "" {
		return nil
	}

	var out []Delta
	text := s.pending + d.Content
	s.pending = ""

	for text != "" {
		if !s.inside {
			if i := strings.Index(text, thinkingOpen); i >= 0 {
				if i > 0 {
					out = append(out, Delta{Content: text[:i]})
				}
				s.inside = true
				text = text[i+len(thinkingOpen):]
				continue
			}
			hold := markerHoldback(text, thinkingOpen)
			if emit := text[:len(text)-hold]; emit != "" {
				out = append(out, Delta{Content: emit})
			}
			s.pending = text[len(text)-hold:]
			return out
		}

		if i := strings.Index(text, thinkingClose); i >= 0 {
			if i > 0 {
				out = append(out, Delta{Content: text[:i], Reasoning: true})
			}
			s.inside = false
			text = text[i+len(thinkingClose):]
			continue
		}
		hold := markerHoldback(text, thinkingClose)
		if emit := text[:len(text)-hold]; emit != "" {
			out = append(out, Delta{Content: emit, Reasoning: true})
		}
		s.pending = text[len(text)-hold:]
		return out
	}
	return out
}

// Flush ends the stream and releases whatever is still held back. Text
// buffered while inside an unterminated marker is surfaced as reasoning
// rather than dropped.
func (s *Splitter) Flush() []Delta {
	if s.pending == "" {
		s.inside = false
		return nil
	}
	d := Delta{Content: s.pending, Reasoning: s.inside}
	s.pending = ""
	s.inside = false
	return []Delta{d}
}

// markerHoldback returns the length of the longest strict suffix of text
// that is a prefix of marker. That suffix cannot be classified until more
// input arrives.
func markerHoldback(text, marker string) int {
	max := len(marker) - 1
	if len(text) < max {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(marker, text[len(text)-n:]) {
			return n
		}
	}
	return 0
}
