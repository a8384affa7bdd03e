// Package chunker splits normalized text into bounded, overlapping chunks.
//
// Offsets and sizes are measured in runes, so multi-byte text is never cut
// inside a code point.
package chunker

import "unicode"

// Defaults used when Options fields are unset.
const (
	DefaultMaxChars      = 1200
	DefaultOverlapChars  = 150
	DefaultMinChunkChars = 200
)

// DefaultSeparators lists split points from coarsest to finest:
// paragraph break, line break, sentence end, space.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Options controls chunk sizes.
type Options struct {
	MaxChars      int
	OverlapChars  int
	MinChunkChars int
	Separators    []string
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxChars:      DefaultMaxChars,
		OverlapChars:  DefaultOverlapChars,
		MinChunkChars: DefaultMinChunkChars,
		Separators:    DefaultSeparators,
	}
}

// normalized fills defaults and clamps overlap below MaxChars.
func (o Options) normalized() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.OverlapChars < 0 {
		o.OverlapChars = 0
	}
	if o.OverlapChars >= o.MaxChars {
		o.OverlapChars = o.MaxChars - 1
	}
	if o.MinChunkChars < 0 {
		o.MinChunkChars = 0
	}
	if o.Separators == nil {
		o.Separators = DefaultSeparators
	}
	return o
}

// Chunk is one output slice of the input text.
// CharStart/CharEnd cover the content including overlap; CoreStart/CoreEnd
// cover the part that is new relative to the previous chunk.
// PageStart/PageEnd are 0 unless produced by SplitPages.
type Chunk struct {
	Index     int
	Content   string
	CharStart int
	CharEnd   int
	CoreStart int
	CoreEnd   int
	PageStart int
	PageEnd   int
}

type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// Split cuts text into chunks. Output indexes are dense from 0 and no chunk is empty.
func Split(text string, opts Options) []Chunk {
	opts = opts.normalized()
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	spans := []span{{0, len(runes)}}
	for _, sep := range opts.Separators {
		if sep == "" {
			continue
		}
		spans = splitOversized(runes, spans, []rune(sep), opts.MaxChars)
	}
	spans = hardSplit(spans, opts.MaxChars)

	cores := pack(spans, opts.MaxChars)
	cores = mergeSmall(cores, opts.MinChunkChars, opts.MaxChars)

	return build(runes, cores, opts.OverlapChars)
}

// splitOversized splits every span longer than maxChars after each occurrence of sep.
// The separator stays with the preceding piece so spans remain contiguous.
func splitOversized(runes []rune, spans []span, sep []rune, maxChars int) []span {
	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		if sp.len() <= maxChars {
			out = append(out, sp)
			continue
		}
		start := sp.start
		for i := sp.start; i+len(sep) <= sp.end; {
			if hasPrefixAt(runes, i, sep) {
				cut := i + len(sep)
				out = append(out, span{start, cut})
				start = cut
				i = cut
				continue
			}
			i++
		}
		if start < sp.end {
			out = append(out, span{start, sp.end})
		}
	}
	return out
}

func hasPrefixAt(runes []rune, at int, sep []rune) bool {
	for j, r := range sep {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}

// hardSplit cuts spans without a natural break at fixed maxChars boundaries.
func hardSplit(spans []span, maxChars int) []span {
	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		for sp.len() > maxChars {
			out = append(out, span{sp.start, sp.start + maxChars})
			sp.start += maxChars
		}
		if sp.len() > 0 {
			out = append(out, sp)
		}
	}
	return out
}

// pack merges adjacent spans greedily up to maxChars. A span that does not fit
// contributes the prefix that does and carries its remainder into the next chunk.
func pack(spans []span, maxChars int) []span {
	if len(spans) == 0 {
		return nil
	}
	var out []span
	cur := span{spans[0].start, spans[0].start}
	for _, sp := range spans {
		pos := sp.start
		for pos < sp.end {
			room := maxChars - cur.len()
			if room == 0 {
				out = append(out, cur)
				cur = span{pos, pos}
				continue
			}
			take := min(room, sp.end-pos)
			pos += take
			cur.end = pos
		}
	}
	if cur.len() > 0 {
		out = append(out, cur)
	}
	return out
}

// mergeSmall folds a non-final chunk shorter than minChars into its successor
// when the merged span still fits maxChars.
func mergeSmall(cores []span, minChars, maxChars int) []span {
	if minChars <= 0 || len(cores) < 2 {
		return cores
	}
	out := make([]span, 0, len(cores))
	for i := 0; i < len(cores); i++ {
		c := cores[i]
		if i < len(cores)-1 && c.len() < minChars && c.len()+cores[i+1].len() <= maxChars {
			cores[i+1].start = c.start
			continue
		}
		out = append(out, c)
	}
	return out
}

// build applies overlap, trims whitespace and numbers the chunks.
func build(runes []rune, cores []span, overlap int) []Chunk {
	chunks := make([]Chunk, 0, len(cores))
	for i, c := range cores {
		core := trim(runes, c)
		if core.len() == 0 {
			continue
		}
		full := core
		if i > 0 && overlap > 0 {
			full.start = max(0, core.start-overlap)
			full = trim(runes, full)
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Content:   string(runes[full.start:full.end]),
			CharStart: full.start,
			CharEnd:   full.end,
			CoreStart: core.start,
			CoreEnd:   core.end,
		})
	}
	return chunks
}

func trim(runes []rune, s span) span {
	for s.start < s.end && unicode.IsSpace(runes[s.start]) {
		s.start++
	}
	for s.end > s.start && unicode.IsSpace(runes[s.end-1]) {
		s.end--
	}
	return s
}
