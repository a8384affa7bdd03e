package search

// Default query tuning.
const (
	DefaultTopK            = 5
	DefaultMaxTopK         = 50
	DefaultOverfetchFactor = 5
	DefaultMaxCandidates   = 200
	DefaultMinTokenLen     = 3
	DefaultExcerptChars    = 600
)

// Options tunes candidate over-fetch, tokenization and excerpts.
type Options struct {
	DefaultTopK     int
	MaxTopK         int
	OverfetchFactor int
	MaxCandidates   int
	MinTokenLen     int
	ExcerptChars    int
}

// DefaultOptions returns the default query tuning.
func DefaultOptions() Options {
	return Options{
		DefaultTopK:     DefaultTopK,
		MaxTopK:         DefaultMaxTopK,
		OverfetchFactor: DefaultOverfetchFactor,
		MaxCandidates:   DefaultMaxCandidates,
		MinTokenLen:     DefaultMinTokenLen,
		ExcerptChars:    DefaultExcerptChars,
	}
}

// withDefaults replaces unset fields with defaults.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultTopK <= 0 {
		o.DefaultTopK = d.DefaultTopK
	}
	if o.MaxTopK <= 0 {
		o.MaxTopK = d.MaxTopK
	}
	if o.OverfetchFactor <= 0 {
		o.OverfetchFactor = d.OverfetchFactor
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	if o.MinTokenLen <= 0 {
		o.MinTokenLen = d.MinTokenLen
	}
	if o.ExcerptChars <= 0 {
		o.ExcerptChars = d.ExcerptChars
	}
	return o
}

// resolveTopK applies the default and the upper bound.
func (o Options) resolveTopK(topK int) int {
	if topK <= 0 {
		topK = o.DefaultTopK
	}
	return min(topK, o.MaxTopK)
}

// candidateK is the number of vector candidates fetched before rerank.
func (o Options) candidateK(topK int) int {
	return max(topK, min(o.MaxCandidates, topK*o.OverfetchFactor))
}
