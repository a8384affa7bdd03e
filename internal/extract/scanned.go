package extract

import "unicode"

// ScannedPolicy holds the thresholds for flagging image-only PDFs.
type ScannedPolicy struct {
	// MinChars is the minimum non-whitespace character count of the whole document.
	MinChars int
	// NearEmptyPageChars is the non-whitespace count under which a page counts as near-empty.
	NearEmptyPageChars int
	// NearEmptyPageRatio is the share of near-empty pages above which the document is flagged.
	NearEmptyPageRatio float64
}

// DefaultScannedPolicy returns the default thresholds.
func DefaultScannedPolicy() ScannedPolicy {
	return ScannedPolicy{MinChars: 50, NearEmptyPageChars: 10, NearEmptyPageRatio: 0.8}
}

// IsLikelyScanned reports whether pages look like a scan without a text layer.
func (p ScannedPolicy) IsLikelyScanned(pages []Page) bool {
	if len(pages) == 0 {
		return true
	}
	total, nearEmpty := 0, 0
	for _, pg := range pages {
		n := countNonSpace(pg.Text)
		total += n
		if n < p.NearEmptyPageChars {
			nearEmpty++
		}
	}
	if total < p.MinChars {
		return true
	}
	return float64(nearEmpty)/float64(len(pages)) > p.NearEmptyPageRatio
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
