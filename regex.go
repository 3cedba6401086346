// Package redfa provides a regex engine built around a lazily-constructed
// DFA (see the dfa package) backed by a linear-time backtracking oracle
// (see the backtrack package) for capture groups, with SIMD-accelerated
// prefilters (see the prefilter and simd packages) used to skip over input
// that cannot possibly contain a match.
//
// The public API mirrors stdlib regexp where the underlying engine
// supports it:
//
//	re, err := redfa.Compile(`\d+`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	match := re.Find([]byte("hello 123 world"))
//	fmt.Println(string(match)) // "123"
//
// Boolean queries (Match, MatchString) run on the lazy DFA (falling back to
// the backtracking oracle only when the DFA gives up), whose
// memory-bounded state cache and SIMD prefix acceleration make them cheap
// even on large inputs. Anything that needs capture boundaries (Find,
// FindSubmatch, ReplaceAll, Split, ...) runs the backtracking oracle
// instead, since a DFA state fuses every NFA thread that reaches it and
// so cannot recover per-group history.
package redfa

import (
	"regexp/syntax"

	"github.com/coregx/redfa/backtrack"
	"github.com/coregx/redfa/dfa"
	"github.com/coregx/redfa/literal"
	"github.com/coregx/redfa/prefilter"
	"github.com/coregx/redfa/prog"
)

// Config controls compilation and search behavior for a Regex.
type Config struct {
	// Longest selects leftmost-longest (POSIX-style) match semantics
	// instead of the default leftmost-first (Perl-style) semantics.
	Longest bool

	// DFAMemoryBudget bounds the lazy DFA's state cache, in bytes.
	DFAMemoryBudget int64

	// DisablePrefilter forces every search through the full engine, useful
	// for benchmarking or diagnosing a suspected prefilter bug.
	DisablePrefilter bool
}

// DefaultConfig returns the default configuration: leftmost-first
// semantics, dfa.DefaultConfig's memory budget, and prefiltering enabled.
func DefaultConfig() Config {
	return Config{DFAMemoryBudget: dfa.DefaultConfig().MemoryBudget}
}

// Regex is a compiled regular expression. A Regex is safe for concurrent
// use by any number of goroutines: the compiled program and prefilter are
// immutable, the lazy DFA synchronizes its own state cache internally, and
// each search allocates its own Backtracker.
type Regex struct {
	pattern string
	syn     *syntax.Regexp
	prog    *prog.Program

	longest bool
	pf      prefilter.Prefilter
	d       *dfa.DFA

	numSubexp int
	subnames  []string
}

// Regexp is an alias for Regex, so that existing code written against
// stdlib regexp can switch import paths without renaming types.
type Regexp = Regex

// Compile parses and compiles pattern (Perl syntax, the same dialect
// stdlib regexp accepts) with the default configuration.
func Compile(pattern string) (*Regex, error) {
	return CompileWithConfig(pattern, DefaultConfig())
}

// MustCompile is like Compile but panics if pattern cannot be parsed.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic("redfa: Compile(`" + pattern + "`): " + err.Error())
	}
	return re
}

// CompileWithConfig compiles pattern under a custom Config, for tuning the
// DFA's memory budget or opting into leftmost-longest semantics.
func CompileWithConfig(pattern string, cfg Config) (*Regex, error) {
	syn, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, &prog.CompileError{Pattern: pattern, Err: err}
	}

	compilerCfg := prog.DefaultCompilerConfig()
	p, err := prog.NewCompiler(compilerCfg).CompileRegexp(syn)
	if err != nil {
		return nil, err
	}

	// Longest selects a leftmost-longest DFA; leftmost-first Regexes only
	// ever ask the DFA for existence (Match/MatchString always search with
	// wantEarliestMatch=true), so a FirstMatch DFA suffices and matches
	// the leftmost-first semantics the Backtracker resolves for anything
	// that needs capture boundaries.
	kind := dfa.FirstMatch
	if cfg.Longest {
		kind = dfa.LongestMatch
	}

	dfaCfg := dfa.DefaultConfig()
	if cfg.DFAMemoryBudget > 0 {
		dfaCfg.MemoryBudget = cfg.DFAMemoryBudget
	}

	var pf prefilter.Prefilter
	if !cfg.DisablePrefilter {
		extractor := literal.New(literal.DefaultConfig())
		prefixes := extractor.ExtractPrefixes(syn)
		suffixes := extractor.ExtractSuffixes(syn)
		pf = prefilter.NewBuilder(prefixes, suffixes).Build()
	}

	numSubexp := p.CaptureCount() - 1
	subnames := make([]string, numSubexp+1)
	collectCaptureNames(syn, subnames)

	return &Regex{
		pattern:   pattern,
		syn:       syn,
		prog:      p,
		longest:   cfg.Longest,
		pf:        pf,
		d:         dfa.New(p, kind, dfaCfg),
		numSubexp: numSubexp,
		subnames:  subnames,
	}, nil
}

// collectCaptureNames walks re's parse tree and records each named capture
// group's name at subnames[re.Cap]. Capture numbering in regexp/syntax is
// assigned in the same left-to-right, depth-first pre-order that
// prog.Compiler's own recursion follows, so re.Cap always names the same
// group prog.Compiler allocated a register pair for.
func collectCaptureNames(re *syntax.Regexp, subnames []string) {
	if re.Op == syntax.OpCapture && re.Cap < len(subnames) {
		subnames[re.Cap] = re.Name
	}
	for _, sub := range re.Sub {
		collectCaptureNames(sub, subnames)
	}
}

// String returns the source text of the compiled pattern.
func (r *Regex) String() string { return r.pattern }

// NumSubexp returns the number of parenthesized subexpressions in the
// pattern, not counting the implicit whole-match group.
func (r *Regex) NumSubexp() int { return r.numSubexp }

// SubexpNames returns the names of the parenthesized subexpressions, in
// the order they appear; unnamed groups (and group 0, the whole match)
// hold "".
func (r *Regex) SubexpNames() []string {
	out := make([]string, len(r.subnames))
	copy(out, r.subnames)
	return out
}

// backtrackKind returns the backtrack.Kind matching this Regex's
// configured leftmost-first/leftmost-longest semantics.
func (r *Regex) backtrackKind() backtrack.Kind {
	if r.longest {
		return backtrack.LongestMatch
	}
	return backtrack.FirstMatch
}

// searchFrom runs the backtracking oracle over text[from:], reporting
// submatch indices relative to text as a whole (stdlib's
// FindSubmatchIndex layout), or nil if no match starts at or after from.
func (r *Regex) searchFrom(text []byte, from int) []int {
	bt := backtrack.New(r.prog)
	sub := text[from:]
	bt.SetMaxVisitedBits(r.prog.Size()*(len(sub)+1) + 64)
	caps, ok := bt.Search(sub, sub, backtrack.Unanchored, r.backtrackKind())
	if !ok {
		return nil
	}
	for i, v := range caps {
		if v >= 0 {
			caps[i] = v + from
		}
	}
	return caps
}

// prefilterSkip advances from to the next position the prefilter reports
// as a candidate, or -1 if none remains. When the prefilter is absent (or
// disabled) it returns from unchanged, so every caller can route through
// this helper unconditionally.
func (r *Regex) prefilterSkip(text []byte, from int) int {
	if r.pf == nil || from >= len(text) {
		return from
	}
	pos := r.pf.Find(text, from)
	if pos < 0 {
		return -1
	}
	return pos
}

// Match reports whether text contains any match of the pattern.
func (r *Regex) Match(text []byte) bool {
	if r.pf != nil {
		if r.prefilterSkip(text, 0) < 0 {
			return false
		}
	}
	res := r.d.Search(text, text, false, true, true)
	if !res.Failed {
		return res.Matched
	}
	return r.searchFrom(text, 0) != nil
}

// MatchString reports whether s contains any match of the pattern.
func (r *Regex) MatchString(s string) bool { return r.Match([]byte(s)) }

// FindIndex returns a two-element slice giving the byte offsets of the
// leftmost match in text, or nil if there is none.
func (r *Regex) FindIndex(text []byte) []int {
	loc := r.searchFrom(text, 0)
	if loc == nil {
		return nil
	}
	return loc[:2]
}

// FindStringIndex is FindIndex over a string.
func (r *Regex) FindStringIndex(s string) []int { return r.FindIndex([]byte(s)) }

// Find returns the leftmost match of the pattern in text, or nil if none.
func (r *Regex) Find(text []byte) []byte {
	loc := r.FindIndex(text)
	if loc == nil {
		return nil
	}
	return text[loc[0]:loc[1]]
}

// FindString is Find over a string.
func (r *Regex) FindString(s string) string {
	b := r.Find([]byte(s))
	if b == nil {
		return ""
	}
	return string(b)
}

// FindSubmatchIndex returns index pairs for the leftmost match and its
// capture groups, in stdlib regexp's FindSubmatchIndex layout: group 0 is
// the whole match, group i occupies loc[2*i:2*i+2], and an unset group
// reads [-1, -1].
func (r *Regex) FindSubmatchIndex(text []byte) []int { return r.searchFrom(text, 0) }

// FindStringSubmatchIndex is FindSubmatchIndex over a string.
func (r *Regex) FindStringSubmatchIndex(s string) []int {
	return r.FindSubmatchIndex([]byte(s))
}

// FindSubmatch returns the leftmost match and its capture groups, or nil
// if there is no match. An unmatched optional group is reported as nil.
func (r *Regex) FindSubmatch(text []byte) [][]byte {
	loc := r.searchFrom(text, 0)
	if loc == nil {
		return nil
	}
	return sliceSubmatch(text, loc)
}

// FindStringSubmatch is FindSubmatch over a string.
func (r *Regex) FindStringSubmatch(s string) []string {
	loc := r.searchFrom([]byte(s), 0)
	if loc == nil {
		return nil
	}
	return stringSubmatch(s, loc)
}

func sliceSubmatch(text []byte, loc []int) [][]byte {
	out := make([][]byte, len(loc)/2)
	for i := range out {
		s, e := loc[2*i], loc[2*i+1]
		if s < 0 || e < 0 {
			continue
		}
		out[i] = text[s:e]
	}
	return out
}

func stringSubmatch(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 || end < 0 {
			continue
		}
		out[i] = s[start:end]
	}
	return out
}

// FindAllIndex returns the index pairs of every non-overlapping match in
// text, in order. If n >= 0, at most n matches are returned.
func (r *Regex) FindAllIndex(text []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	pos := 0
	for pos <= len(text) {
		loc := r.searchFrom(text, pos)
		if loc == nil {
			break
		}
		out = append(out, loc[:2])
		if n > 0 && len(out) >= n {
			break
		}
		if loc[1] == loc[0] {
			pos = loc[1] + 1
		} else {
			pos = loc[1]
		}
	}
	return out
}

// FindAllStringIndex is FindAllIndex over a string.
func (r *Regex) FindAllStringIndex(s string, n int) [][]int {
	return r.FindAllIndex([]byte(s), n)
}

// FindAll returns the text of every non-overlapping match in text, in
// order. If n >= 0, at most n matches are returned.
func (r *Regex) FindAll(text []byte, n int) [][]byte {
	locs := r.FindAllIndex(text, n)
	if locs == nil {
		return nil
	}
	out := make([][]byte, len(locs))
	for i, loc := range locs {
		out[i] = text[loc[0]:loc[1]]
	}
	return out
}

// FindAllString is FindAll over a string.
func (r *Regex) FindAllString(s string, n int) []string {
	locs := r.FindAllStringIndex(s, n)
	if locs == nil {
		return nil
	}
	out := make([]string, len(locs))
	for i, loc := range locs {
		out[i] = s[loc[0]:loc[1]]
	}
	return out
}

// FindAllSubmatchIndex returns index pairs for every non-overlapping
// match and its capture groups, in FindSubmatchIndex layout. If n >= 0,
// at most n matches are returned.
func (r *Regex) FindAllSubmatchIndex(text []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	pos := 0
	for pos <= len(text) {
		loc := r.searchFrom(text, pos)
		if loc == nil {
			break
		}
		out = append(out, loc)
		if n > 0 && len(out) >= n {
			break
		}
		if loc[1] == loc[0] {
			pos = loc[1] + 1
		} else {
			pos = loc[1]
		}
	}
	return out
}

// FindAllStringSubmatchIndex is FindAllSubmatchIndex over a string.
func (r *Regex) FindAllStringSubmatchIndex(s string, n int) [][]int {
	return r.FindAllSubmatchIndex([]byte(s), n)
}

// FindAllSubmatch returns every non-overlapping match and its capture
// groups. If n >= 0, at most n matches are returned.
func (r *Regex) FindAllSubmatch(text []byte, n int) [][][]byte {
	locs := r.FindAllSubmatchIndex(text, n)
	if locs == nil {
		return nil
	}
	out := make([][][]byte, len(locs))
	for i, loc := range locs {
		out[i] = sliceSubmatch(text, loc)
	}
	return out
}

// FindAllStringSubmatch is FindAllSubmatch over a string.
func (r *Regex) FindAllStringSubmatch(s string, n int) [][]string {
	locs := r.FindAllStringSubmatchIndex(s, n)
	if locs == nil {
		return nil
	}
	out := make([][]string, len(locs))
	for i, loc := range locs {
		out[i] = stringSubmatch(s, loc)
	}
	return out
}

// Count returns the number of non-overlapping matches in text. If n >= 0,
// counting stops after n matches.
func (r *Regex) Count(text []byte, n int) int {
	return len(r.FindAllIndex(text, n))
}

// CountString is Count over a string.
func (r *Regex) CountString(s string, n int) int { return r.Count([]byte(s), n) }

// Split slices s into substrings separated by matches of the pattern,
// returning the substrings between (and around) them. If n > 0, at most n
// substrings are returned, with the last holding the remainder of s.
func (r *Regex) Split(s string, n int) []string {
	if n == 0 {
		return nil
	}
	locs := r.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}

	numSplits := len(locs) + 1
	if n > 0 && n < numSplits {
		numSplits = n
	}
	out := make([]string, 0, numSplits)

	last := 0
	for _, loc := range locs {
		if n > 0 && len(out) == n-1 {
			break
		}
		out = append(out, s[last:loc[0]])
		last = loc[1]
	}
	out = append(out, s[last:])
	return out
}

// ReplaceAllLiteral returns a copy of src with every match of the pattern
// replaced by repl, without interpreting $ expansions in repl.
func (r *Regex) ReplaceAllLiteral(src, repl []byte) []byte {
	locs := r.FindAllIndex(src, -1)
	if len(locs) == 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}
	var out []byte
	last := 0
	for _, loc := range locs {
		out = append(out, src[last:loc[0]]...)
		out = append(out, repl...)
		last = loc[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllLiteralString is ReplaceAllLiteral over strings.
func (r *Regex) ReplaceAllLiteralString(src, repl string) string {
	return string(r.ReplaceAllLiteral([]byte(src), []byte(repl)))
}

// expand appends template to dst, replacing $0, $1, ... with the
// corresponding submatch from match (stdlib Expand's $name form is not
// supported, matching this engine's simpler capture model).
func expand(dst, template, src []byte, match []int) []byte {
	for i := 0; i < len(template); {
		if template[i] != '$' || i+1 >= len(template) {
			dst = append(dst, template[i])
			i++
			continue
		}
		next := template[i+1]
		switch {
		case next >= '0' && next <= '9':
			g := int(next - '0')
			idx := g * 2
			if idx+1 < len(match) && match[idx] >= 0 {
				dst = append(dst, src[match[idx]:match[idx+1]]...)
			}
			i += 2
		case next == '$':
			dst = append(dst, '$')
			i += 2
		default:
			dst = append(dst, '$')
			i++
		}
	}
	return dst
}

// ReplaceAll returns a copy of src with every match of the pattern
// replaced by repl, expanding $0, $1, ... references to capture groups.
func (r *Regex) ReplaceAll(src, repl []byte) []byte {
	locs := r.FindAllSubmatchIndex(src, -1)
	if len(locs) == 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}
	var out []byte
	last := 0
	for _, loc := range locs {
		out = append(out, src[last:loc[0]]...)
		out = expand(out, repl, src, loc)
		last = loc[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllString is ReplaceAll over strings.
func (r *Regex) ReplaceAllString(src, repl string) string {
	return string(r.ReplaceAll([]byte(src), []byte(repl)))
}

// ReplaceAllFunc returns a copy of src with every match replaced by the
// result of calling repl on the matched bytes.
func (r *Regex) ReplaceAllFunc(src []byte, repl func([]byte) []byte) []byte {
	locs := r.FindAllIndex(src, -1)
	if len(locs) == 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}
	var out []byte
	last := 0
	for _, loc := range locs {
		out = append(out, src[last:loc[0]]...)
		out = append(out, repl(src[loc[0]:loc[1]])...)
		last = loc[1]
	}
	out = append(out, src[last:]...)
	return out
}

// ReplaceAllStringFunc is ReplaceAllFunc over strings.
func (r *Regex) ReplaceAllStringFunc(src string, repl func(string) string) string {
	b := r.ReplaceAllFunc([]byte(src), func(m []byte) []byte {
		return []byte(repl(string(m)))
	})
	return string(b)
}

// QuoteMeta escapes every regex metacharacter in s so the result matches s
// literally.
func QuoteMeta(s string) string {
	const special = `\.+*?()|[]{}^$`
	n := 0
	for i := 0; i < len(s); i++ {
		if containsByte(special, s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	buf := make([]byte, len(s)+n)
	j := 0
	for i := 0; i < len(s); i++ {
		if containsByte(special, s[i]) {
			buf[j] = '\\'
			j++
		}
		buf[j] = s[i]
		j++
	}
	return string(buf)
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
