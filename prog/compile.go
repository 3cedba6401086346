package prog

import (
	"fmt"
	"regexp/syntax"
	"unicode"
)

// CompilerConfig configures program compilation behavior.
type CompilerConfig struct {
	// Anchored forces every pattern to be tried only from the start of the
	// search context; unanchored patterns still get an anchored program,
	// but the caller drives search from every text position instead of
	// wrapping the pattern in an implicit ".*?" prefix.
	Anchored bool

	// MaxRecursionDepth bounds compiler recursion over nested sub-patterns.
	MaxRecursionDepth int
}

// DefaultCompilerConfig returns sane defaults.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{MaxRecursionDepth: 1000}
}

// Compiler turns a parsed regexp/syntax.Regexp into a Program using the
// consecutive-id/last-flag alternation encoding described on Inst.Last:
// no Split or Epsilon opcode exists, so every branch point is either a run
// of ByteRange instructions (character classes) or a run of Nop dispatch
// slots pointing at branches compiled elsewhere (general alternation,
// star, plus, quest).
type Compiler struct {
	config  CompilerConfig
	builder *Builder
	depth   int
}

// NewCompiler creates a Compiler with the given configuration.
func NewCompiler(config CompilerConfig) *Compiler {
	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = 1000
	}
	return &Compiler{config: config, builder: NewBuilder()}
}

// Compile parses and compiles a single pattern into a Program.
func Compile(pattern string) (*Program, error) {
	return NewCompiler(DefaultCompilerConfig()).Compile(pattern)
}

// Compile parses pattern with regexp/syntax and compiles it.
func (c *Compiler) Compile(pattern string) (*Program, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}
	return c.CompileRegexp(re)
}

// CompileMany compiles several patterns into one program whose Match
// instructions are distinguished by MatchID, for simultaneous
// (ManyMatch-style) search. Each pattern is compiled independently and the
// results offered as alternatives through the ordinary Nop dispatch chain
// used for general alternation; a search records every MatchID reached
// rather than stopping at the first.
func CompileMany(patterns []string) (*Program, error) {
	c := NewCompiler(DefaultCompilerConfig())
	c.builder = NewBuilder()

	frags := make([]fragment, len(patterns))
	for i, pattern := range patterns {
		re, err := syntax.Parse(pattern, syntax.Perl)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Err: err}
		}
		c.depth = 0
		f, err := c.compile(re)
		if err != nil {
			return nil, err
		}
		matchID := c.builder.emit(Inst{Op: OpMatch, MatchID: i, Last: true})
		c.builder.patch(f.out, matchID)
		frags[i] = fragment{start: f.start}
	}

	combined := c.builder.alt(frags...)
	p := &Program{
		insts:           c.builder.insts,
		startAnchored:   combined.start,
		startUnanchored: combined.start,
		listCount:       len(patterns),
		captureCount:    c.builder.captureCount,
	}
	p.byteClasses = computeByteClasses(p.insts)
	return p, nil
}

// CompileRegexp compiles an already-parsed expression tree.
func (c *Compiler) CompileRegexp(re *syntax.Regexp) (*Program, error) {
	c.builder = NewBuilder()
	c.depth = 0

	anchorStart, anchorEnd := detectAnchors(re)

	// Reserve registers 0/1 for the whole match before any user capture
	// group, matching stdlib regexp's convention that group 0 is always
	// the overall match.
	wholeReg := c.builder.allocCapture()
	open := c.builder.capture(wholeReg)

	f, err := c.compile(re)
	if err != nil {
		return nil, err
	}
	closeFrag := c.builder.capture(wholeReg + 1)
	wrapped := c.builder.cat(open, f, closeFrag)

	return c.finishAnchored(wrapped, anchorStart, anchorEnd)
}

func (c *Compiler) finishAnchored(f fragment, anchorStart, anchorEnd bool) (*Program, error) {
	matchID := c.builder.emit(Inst{Op: OpMatch, Last: true})
	c.builder.patch(f.out, matchID)

	startAnchored := f.start
	startUnanchored := f.start
	if !anchorStart && !c.config.Anchored {
		// Prepend an unanchored entry: .*? sub, compiled as a lazy star of
		// "any byte" feeding into the anchored program. This lets a single
		// search loop serve both anchored and unanchored callers by
		// picking whichever start id it needs (see the dfa package).
		anyByte := c.builder.byteRange(0x00, 0xFF)
		anyByte = fragment{start: anyByte.start, out: anyByte.out}
		prefix := c.builder.star(anyByte, false)
		c.builder.patch(prefix.out, f.start)
		startUnanchored = prefix.start
	}

	p := &Program{
		insts:           c.builder.insts,
		startAnchored:   startAnchored,
		startUnanchored: startUnanchored,
		anchorStart:     anchorStart,
		anchorEnd:       anchorEnd,
		listCount:       1,
		captureCount:    c.builder.captureCount,
	}
	p.byteClasses = computeByteClasses(p.insts)
	return p, nil
}

// detectAnchors reports whether re requires the match to begin, and to
// end, at the boundaries of the search context. It only recognizes the
// common ^...$ / \A...\z wrapping shape; anchors appearing elsewhere are
// still compiled correctly as EmptyWidth instructions, just without this
// fast-path hint.
func detectAnchors(re *syntax.Regexp) (start, end bool) {
	subs := []*syntax.Regexp{re}
	if re.Op == syntax.OpConcat {
		subs = re.Sub
	}
	if len(subs) == 0 {
		return false, false
	}
	first := subs[0]
	last := subs[len(subs)-1]
	start = first.Op == syntax.OpBeginText
	end = last.Op == syntax.OpEndText
	return start, end
}

func (c *Compiler) compile(re *syntax.Regexp) (fragment, error) {
	c.depth++
	if c.depth > c.config.MaxRecursionDepth {
		c.depth--
		return fragment{}, &CompileError{Err: ErrTooComplex}
	}
	defer func() { c.depth-- }()

	switch re.Op {
	case syntax.OpLiteral:
		return c.compileLiteral(re.Rune, re.Flags&syntax.FoldCase != 0)
	case syntax.OpCharClass:
		return c.compileCharClass(re.Rune)
	case syntax.OpAnyChar:
		return c.builder.byteRange(0x00, 0xFF), nil
	case syntax.OpAnyCharNotNL:
		return c.compileAnyCharNotNL()
	case syntax.OpConcat:
		return c.compileConcat(re.Sub)
	case syntax.OpAlternate:
		return c.compileAlternate(re.Sub)
	case syntax.OpStar:
		return c.compileRepeatOp(re.Sub[0], c.builder.star, re.Flags&syntax.NonGreedy == 0)
	case syntax.OpPlus:
		return c.compileRepeatOp(re.Sub[0], c.builder.plus, re.Flags&syntax.NonGreedy == 0)
	case syntax.OpQuest:
		return c.compileRepeatOp(re.Sub[0], c.builder.quest, re.Flags&syntax.NonGreedy == 0)
	case syntax.OpRepeat:
		return c.compileRepeat(re.Sub[0], re.Min, re.Max)
	case syntax.OpCapture:
		return c.compileCapture(re)
	case syntax.OpBeginLine:
		return c.builder.emptyWidth(EmptyBeginLine), nil
	case syntax.OpEndLine:
		return c.builder.emptyWidth(EmptyEndLine), nil
	case syntax.OpBeginText:
		return c.builder.emptyWidth(EmptyBeginText), nil
	case syntax.OpEndText:
		return c.builder.emptyWidth(EmptyEndText), nil
	case syntax.OpWordBoundary:
		return c.builder.emptyWidth(EmptyWordBoundary), nil
	case syntax.OpNoWordBoundary:
		return c.builder.emptyWidth(EmptyNonWordBoundary), nil
	case syntax.OpEmptyMatch:
		return c.builder.empty(), nil
	case syntax.OpNoMatch:
		return c.builder.fail(), nil
	default:
		return fragment{}, &CompileError{Err: fmt.Errorf("unsupported regex operation: %v", re.Op)}
	}
}

func (c *Compiler) compileRepeatOp(sub *syntax.Regexp, op func(fragment, bool) fragment, greedy bool) (fragment, error) {
	f, err := c.compile(sub)
	if err != nil {
		return fragment{}, err
	}
	return op(f, greedy), nil
}

func (c *Compiler) compileCapture(re *syntax.Regexp) (fragment, error) {
	reg := c.builder.allocCapture()
	open := c.builder.capture(reg)
	body, err := c.compile(re.Sub[0])
	if err != nil {
		return fragment{}, err
	}
	closeFrag := c.builder.capture(reg + 1)
	return c.builder.cat(open, body, closeFrag), nil
}

func (c *Compiler) compileLiteral(runes []rune, foldCase bool) (fragment, error) {
	if len(runes) == 0 {
		return c.builder.empty(), nil
	}
	var frags []fragment
	for _, r := range runes {
		if foldCase {
			f, err := c.compileFoldedRune(r)
			if err != nil {
				return fragment{}, err
			}
			frags = append(frags, f)
			continue
		}
		frags = append(frags, c.compileRuneBytes(r))
	}
	return c.builder.cat(frags...), nil
}

func (c *Compiler) compileRuneBytes(r rune) fragment {
	var buf [4]byte
	n := encodeRune(buf[:], r)
	frags := make([]fragment, n)
	for i := 0; i < n; i++ {
		frags[i] = c.builder.byteRange(buf[i], buf[i])
	}
	return c.builder.cat(frags...)
}

func (c *Compiler) compileFoldedRune(r rune) (fragment, error) {
	variants := foldOrbit(r)
	frags := make([]fragment, len(variants))
	for i, v := range variants {
		frags[i] = c.compileRuneBytes(v)
	}
	return c.builder.alt(frags...), nil
}

// foldOrbit returns every simple case variant of r (itself included).
func foldOrbit(r rune) []rune {
	out := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		out = append(out, f)
	}
	return out
}

func (c *Compiler) compileCharClass(ranges []rune) (fragment, error) {
	if len(ranges) == 0 {
		return c.builder.fail(), nil
	}

	allASCII := true
	for _, r := range ranges {
		if r > 0x7F {
			allASCII = false
			break
		}
	}
	if allASCII {
		byteRanges := make([][2]byte, 0, len(ranges)/2)
		for i := 0; i < len(ranges); i += 2 {
			byteRanges = append(byteRanges, [2]byte{byte(ranges[i]), byte(ranges[i+1])})
		}
		return c.builder.altByteRanges(byteRanges), nil
	}

	return c.compileUnicodeClass(ranges)
}

// compileUnicodeClass expands a Unicode range list into per-rune UTF-8
// alternatives, without UTF-8 range factoring. A class of more than
// maxExpand (4096) runes, such as a negated class like [^a], is rejected
// with ErrTooComplex.
func (c *Compiler) compileUnicodeClass(ranges []rune) (fragment, error) {
	const maxExpand = 4096
	var frags []fragment
	count := 0
	for i := 0; i < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		for r := lo; r <= hi; r++ {
			count++
			if count > maxExpand {
				return fragment{}, &CompileError{Err: ErrTooComplex}
			}
			frags = append(frags, c.compileRuneBytes(r))
		}
	}
	if len(frags) == 1 {
		return frags[0], nil
	}
	return c.builder.alt(frags...), nil
}

func (c *Compiler) compileAnyCharNotNL() (fragment, error) {
	return c.builder.altByteRanges([][2]byte{{0x00, 0x09}, {0x0B, 0xFF}}), nil
}

func (c *Compiler) compileConcat(subs []*syntax.Regexp) (fragment, error) {
	if len(subs) == 0 {
		return c.builder.empty(), nil
	}
	frags := make([]fragment, len(subs))
	for i, sub := range subs {
		f, err := c.compile(sub)
		if err != nil {
			return fragment{}, err
		}
		frags[i] = f
	}
	return c.builder.cat(frags...), nil
}

func (c *Compiler) compileAlternate(subs []*syntax.Regexp) (fragment, error) {
	if len(subs) == 0 {
		return c.builder.empty(), nil
	}
	frags := make([]fragment, len(subs))
	for i, sub := range subs {
		f, err := c.compile(sub)
		if err != nil {
			return fragment{}, err
		}
		frags[i] = f
	}
	return c.builder.alt(frags...), nil
}

func (c *Compiler) compileRepeat(sub *syntax.Regexp, minCount, maxCount int) (fragment, error) {
	if maxCount == -1 {
		if minCount == 0 {
			return c.compile(&syntax.Regexp{Op: syntax.OpStar, Sub: []*syntax.Regexp{sub}, Flags: sub.Flags})
		}
		subs := repeatSubs(sub, minCount)
		subs = append(subs, &syntax.Regexp{Op: syntax.OpStar, Sub: []*syntax.Regexp{sub}, Flags: sub.Flags})
		return c.compileConcat(subs)
	}
	if minCount == maxCount {
		if minCount == 0 {
			return c.builder.empty(), nil
		}
		return c.compileConcat(repeatSubs(sub, minCount))
	}
	if minCount > maxCount {
		return fragment{}, &CompileError{Err: fmt.Errorf("invalid repeat range {%d,%d}", minCount, maxCount)}
	}
	subs := repeatSubs(sub, minCount)
	for i := 0; i < maxCount-minCount; i++ {
		subs = append(subs, &syntax.Regexp{Op: syntax.OpQuest, Sub: []*syntax.Regexp{sub}, Flags: sub.Flags})
	}
	return c.compileConcat(subs)
}

func repeatSubs(sub *syntax.Regexp, n int) []*syntax.Regexp {
	subs := make([]*syntax.Regexp, n)
	for i := range subs {
		subs[i] = sub
	}
	return subs
}

// computeByteClasses derives byte equivalence classes from every
// ByteRange boundary appearing in the compiled instructions, plus the
// boundaries the DFA needs regardless of which ByteRanges the pattern
// happens to compile to: it resolves ^, $, \b and \B one byte class at a
// time using a single representative byte from each class (see the dfa
// package), which is only sound if '\n' and the \w/\W split never fall
// inside the same class as a byte on the other side of that boundary.
func computeByteClasses(insts []Inst) ByteClasses {
	set := NewByteClassSet()
	for _, inst := range insts {
		if inst.Op == OpByteRange {
			set.SetRange(inst.Lo, inst.Hi)
		}
	}
	set.SetByte('\n')
	set.SetRange('a', 'z')
	set.SetRange('A', 'Z')
	set.SetRange('0', '9')
	set.SetByte('_')
	return set.ByteClasses()
}

// encodeRune encodes r as UTF-8 into buf (capacity >= 4) and returns the
// number of bytes written.
func encodeRune(buf []byte, r rune) int {
	switch {
	case r < 0x80:
		buf[0] = byte(r)
		return 1
	case r < 0x800:
		buf[0] = byte(0xC0 | (r >> 6))
		buf[1] = byte(0x80 | (r & 0x3F))
		return 2
	case r < 0x10000:
		buf[0] = byte(0xE0 | (r >> 12))
		buf[1] = byte(0x80 | ((r >> 6) & 0x3F))
		buf[2] = byte(0x80 | (r & 0x3F))
		return 3
	default:
		buf[0] = byte(0xF0 | (r >> 18))
		buf[1] = byte(0x80 | ((r >> 12) & 0x3F))
		buf[2] = byte(0x80 | ((r >> 6) & 0x3F))
		buf[3] = byte(0x80 | (r & 0x3F))
		return 4
	}
}
