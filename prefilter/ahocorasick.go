package prefilter

import (
	"github.com/coregx/ahocorasick"
	"github.com/coregx/redfa/literal"
)

// MinAhoCorasickPatterns is the point past which Teddy's bucket-per-pattern
// SIMD scheme stops paying for itself and a real automaton becomes cheaper
// per byte scanned.
const MinAhoCorasickPatterns = 9

// AhoCorasickPrefilter finds candidate positions using a compiled
// Aho-Corasick automaton, for literal sets too large for Teddy's 8 SIMD
// buckets (large alternations like (foo|bar|baz|...|quux)).
type AhoCorasickPrefilter struct {
	automaton *ahocorasick.Automaton
	patterns  int
	complete  bool
	minLen    int
	uniform   int
}

// newAhoCorasick builds an AhoCorasickPrefilter over seq's literals, or nil
// if the automaton fails to build (caller falls back to no prefilter).
func newAhoCorasick(seq *literal.Seq) Prefilter {
	builder := ahocorasick.NewBuilder()
	n := seq.Len()
	complete := true
	minLen := -1
	uniform := -1
	for i := 0; i < n; i++ {
		lit := seq.Get(i)
		builder.AddPattern(lit.Bytes)
		if !lit.Complete {
			complete = false
		}
		if minLen == -1 || len(lit.Bytes) < minLen {
			minLen = len(lit.Bytes)
		}
		if uniform == -1 {
			uniform = len(lit.Bytes)
		} else if uniform != len(lit.Bytes) {
			uniform = 0
		}
	}

	automaton, err := builder.Build()
	if err != nil {
		return nil
	}
	return &AhoCorasickPrefilter{
		automaton: automaton,
		patterns:  n,
		complete:  complete,
		minLen:    minLen,
		uniform:   uniform,
	}
}

// Find implements Prefilter.
func (a *AhoCorasickPrefilter) Find(haystack []byte, start int) int {
	if start >= len(haystack) {
		return -1
	}
	m := a.automaton.Find(haystack, start)
	if m == nil {
		return -1
	}
	return m.Start
}

// FindMatch implements MatchFinder, letting a caller that only needs the
// candidate literal's own span skip a full regex verification pass when
// IsComplete is true.
func (a *AhoCorasickPrefilter) FindMatch(haystack []byte, start int) (int, int) {
	if start >= len(haystack) {
		return -1, -1
	}
	m := a.automaton.Find(haystack, start)
	if m == nil {
		return -1, -1
	}
	return m.Start, m.End
}

// IsComplete implements Prefilter.
func (a *AhoCorasickPrefilter) IsComplete() bool { return a.complete }

// LiteralLen implements Prefilter. It only reports a fixed length when
// every alternative literal has the same length; otherwise callers must
// use FindMatch to learn the matched span.
func (a *AhoCorasickPrefilter) LiteralLen() int {
	if a.complete && a.uniform > 0 {
		return a.uniform
	}
	return 0
}

// HeapBytes implements Prefilter, approximating the automaton's cost at a
// flat 64 bytes per pattern; pattern lengths are not counted.
func (a *AhoCorasickPrefilter) HeapBytes() int {
	return a.patterns * 64
}
