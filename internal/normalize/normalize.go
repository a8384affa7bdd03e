// Package normalize cleans extracted document text before chunking.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Default hyphenation thresholds: letters before and after a line-break hyphen.
const (
	DefaultHyphenMinPrefix = 2
	DefaultHyphenMinSuffix = 3
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	spaceAroundLF   = regexp.MustCompile(` *\n *`)
	extraBlankLines = regexp.MustCompile(`\n{3,}`)
	crlf            = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalizer is a deterministic text cleaner. Safe for concurrent use.
type Normalizer struct {
	hyphen *regexp.Regexp
}

// New creates a Normalizer that repairs line-break hyphenation only between
// at least minPrefix letters and minSuffix letters. Non-positive values use the defaults.
func New(minPrefix, minSuffix int) *Normalizer {
	if minPrefix <= 0 {
		minPrefix = DefaultHyphenMinPrefix
	}
	if minSuffix <= 0 {
		minSuffix = DefaultHyphenMinSuffix
	}
	return &Normalizer{
		hyphen: regexp.MustCompile(fmt.Sprintf(`(\pL{%d,})-[ \t]*\n[ \t]*(\pL{%d,})`, minPrefix, minSuffix)),
	}
}

var defaultNormalizer = New(DefaultHyphenMinPrefix, DefaultHyphenMinSuffix)

// Text normalizes s with the default thresholds.
func Text(s string) string {
	return defaultNormalizer.Normalize(s)
}

// Normalize strips null bytes, unifies line endings, repairs words hyphenated
// across a line break, collapses horizontal whitespace and keeps paragraph breaks.
func (n *Normalizer) Normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = crlf.Replace(s)
	s = n.hyphen.ReplaceAllString(s, "$1$2")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundLF.ReplaceAllString(s, "\n")
	s = extraBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
