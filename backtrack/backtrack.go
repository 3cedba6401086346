// Package backtrack implements a bounded recursive backtracking matcher
// over a compiled program (see the prog package). It exists purely as a
// correctness oracle for the dfa package: unlike a DFA state, which fuses
// every NFA thread reaching it into one configuration and so can only
// report leftmost-longest matches, this package follows one thread at a
// time in the exact priority order the compiler encoded (branch order,
// greedy-vs-lazy quantifier order), so it can also resolve leftmost-first
// Perl semantics and capture group boundaries.
//
// Its cost is memory: a (instruction, position) visited bitmap sized
// program.Size() * (len(text)+1) bits bounds it to O(m*n) time and space,
// the same technique the original C++ engine this package mirrors uses.
// CanHandle reports when that bitmap would grow too large for a given
// input; production callers should fall back to the dfa package (or a
// submatch NFA) rather than run this engine on large inputs.
package backtrack

import "github.com/coregx/redfa/prog"

// DefaultMaxVisitedBits caps the visited bitmap at 256KiB.
const DefaultMaxVisitedBits = 256 * 1024 * 8

// Anchor selects whether Search may try start positions past the
// beginning of text.
type Anchor int

const (
	Unanchored Anchor = iota
	Anchored
)

// Kind selects how Search resolves ambiguity among matches found at the
// same (leftmost) start position.
type Kind int

const (
	// FirstMatch accepts the first alternative that matches, in program
	// order, without looking for a longer one.
	FirstMatch Kind = iota
	// LongestMatch tries every alternative and keeps whichever produces
	// the rightmost end position.
	LongestMatch
	// FullMatch behaves like an anchored LongestMatch search, and in
	// addition requires the match to consume all of text.
	FullMatch
)

// Backtracker runs searches over a single compiled program. It is not
// safe for concurrent use; give each goroutine its own instance
// (construction is cheap: New does no allocation beyond the struct).
type Backtracker struct {
	prog *prog.Program

	maxVisitedBits int
	visited        []uint64

	text    []byte
	context []byte
	caps    []int

	kind     Kind
	bestEnd  int
	bestCaps []int
}

// New creates a Backtracker over p.
func New(p *prog.Program) *Backtracker {
	return &Backtracker{prog: p, maxVisitedBits: DefaultMaxVisitedBits}
}

// SetMaxVisitedBits overrides the default visited-bitmap budget.
func (b *Backtracker) SetMaxVisitedBits(n int) { b.maxVisitedBits = n }

// CanHandle reports whether a search over textLen bytes fits within the
// visited-bitmap budget.
func (b *Backtracker) CanHandle(textLen int) bool {
	return b.prog.Size()*(textLen+1) <= b.maxVisitedBits
}

func (b *Backtracker) reset(textLen int) {
	bitsNeeded := b.prog.Size() * (textLen + 1)
	wordsNeeded := (bitsNeeded + 63) / 64
	if cap(b.visited) >= wordsNeeded {
		b.visited = b.visited[:wordsNeeded]
		for i := range b.visited {
			b.visited[i] = 0
		}
	} else {
		b.visited = make([]uint64, wordsNeeded)
	}

	nregs := b.prog.CaptureCount() * 2
	if cap(b.caps) >= nregs {
		b.caps = b.caps[:nregs]
	} else {
		b.caps = make([]int, nregs)
	}
	for i := range b.caps {
		b.caps[i] = -1
	}
}

// shouldVisit reports whether (id, pos) has not yet been tried in this
// attempt, marking it visited as a side effect. Once tried, retrying it
// can only repeat the same outcome: what happens next is fully
// determined by the remaining text and which instruction resumes there,
// never by how the search arrived.
func (b *Backtracker) shouldVisit(id prog.ID, pos int) bool {
	idx := int(id)*(len(b.text)+1) + pos
	word := idx / 64
	bit := uint64(1) << uint(idx%64)
	if b.visited[word]&bit != 0 {
		return false
	}
	b.visited[word] |= bit
	return true
}

// Search runs a search over text, interpreting ^, $, \A, \z, \b and \B
// relative to context (pass text itself when there is no wider context).
// On success it returns capture group boundaries in stdlib regexp's
// FindSubmatchIndex layout: group 0 is the whole match, group i occupies
// caps[2*i:2*i+2], and an unset group reads [-1, -1].
func (b *Backtracker) Search(text, context []byte, anchor Anchor, kind Kind) ([]int, bool) {
	anchored := anchor == Anchored || kind == FullMatch
	effectiveKind := kind
	if kind == FullMatch {
		effectiveKind = LongestMatch
	}

	maxStart := 0
	if !anchored {
		maxStart = len(text)
	}

	for startPos := 0; startPos <= maxStart; startPos++ {
		b.text, b.context = text, context
		b.reset(len(text))
		b.kind = effectiveKind
		b.bestEnd = -1
		b.bestCaps = nil

		if !b.try(b.prog.Start(), startPos) {
			continue
		}
		if kind == FullMatch && b.bestEnd != len(text) {
			return nil, false
		}
		out := make([]int, len(b.bestCaps))
		copy(out, b.bestCaps)
		return out, true
	}
	return nil, false
}

// Match is a convenience wrapper over Search that discards captures.
func (b *Backtracker) Match(text []byte, anchor Anchor) bool {
	_, ok := b.Search(text, text, anchor, FirstMatch)
	return ok
}

// try attempts to complete a match starting from instruction id at pos,
// following the same fallthrough-to-sibling protocol as the dfa
// package's AddToQueue: an instruction's own Out edge is tried first,
// and control falls to id+1 (when the instruction is not the last member
// of its alternation) either because the first branch failed, or,
// in LongestMatch mode, because a later alternative might still produce
// a longer match.
func (b *Backtracker) try(id prog.ID, pos int) bool {
	if id == prog.InvalidID {
		return false
	}
	if !b.shouldVisit(id, pos) {
		return false
	}

	inst := b.prog.Inst(id)
	ok := false

	switch inst.Op {
	case prog.OpByteRange:
		if pos < len(b.text) && inst.Matches(b.text[pos]) {
			ok = b.try(inst.Out, pos+1)
		}

	case prog.OpCapture:
		if int(inst.Cap) < len(b.caps) {
			old := b.caps[inst.Cap]
			b.caps[inst.Cap] = pos
			ok = b.try(inst.Out, pos)
			if !ok {
				b.caps[inst.Cap] = old
			}
		} else {
			ok = b.try(inst.Out, pos)
		}

	case prog.OpEmptyWidth:
		flags := prog.EmptyFlags(b.context, pos)
		if inst.Empty&^flags == 0 {
			ok = b.try(inst.Out, pos)
		}

	case prog.OpNop:
		ok = b.try(inst.Out, pos)

	case prog.OpMatch:
		ok = true
		if pos > b.bestEnd {
			b.bestEnd = pos
			b.bestCaps = append(b.bestCaps[:0], b.caps...)
		}

	case prog.OpFail, prog.OpAltMatch:
		ok = false
	}

	if inst.Last {
		return ok
	}
	if ok && b.kind != LongestMatch {
		return true
	}
	siblingOk := b.try(id+1, pos)
	return ok || siblingOk
}
