package chunker

import (
	"strings"
	"unicode/utf8"
)

// Page is the text of one source page. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// pageSpan is the rune range [start, end) a page occupies in the joined text.
type pageSpan struct {
	number     int
	start, end int
}

const pageSeparator = "\n\n"

// SplitPages normalizes each page, joins them with a paragraph break and
// chunks the result, tagging every chunk with the pages it intersects.
// A nil normalize leaves page text unchanged. Pages that normalize to nothing are skipped.
func SplitPages(pages []Page, opts Options, normalize func(string) string) (string, []Chunk) {
	var b strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	offset := 0

	for i, p := range pages {
		text := p.Text
		if normalize != nil {
			text = normalize(text)
		}
		if text == "" {
			continue
		}
		number := p.Number
		if number <= 0 {
			number = i + 1
		}
		if b.Len() > 0 {
			b.WriteString(pageSeparator)
			offset += utf8.RuneCountInString(pageSeparator)
		}
		n := utf8.RuneCountInString(text)
		spans = append(spans, pageSpan{number: number, start: offset, end: offset + n})
		b.WriteString(text)
		offset += n
	}

	joined := b.String()
	chunks := Split(joined, opts)
	for i := range chunks {
		chunks[i].PageStart, chunks[i].PageEnd = pageRange(spans, chunks[i].CharStart, chunks[i].CharEnd)
	}
	return joined, chunks
}

// pageRange returns the lowest and highest page numbers whose span intersects [start, end).
func pageRange(spans []pageSpan, start, end int) (first, last int) {
	for _, s := range spans {
		if end > s.start && start < s.end {
			if first == 0 || s.number < first {
				first = s.number
			}
			if s.number > last {
				last = s.number
			}
		}
	}
	return first, last
}
