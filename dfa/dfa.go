// Package dfa implements a lazily-constructed byte-at-a-time DFA over a
// compiled program (see the prog package), in the style of RE2's DFA: no
// state is built until a search actually needs it, built states are
// cached and reused across searches, and the cache is bounded by a byte
// budget rather than a state count so it can be flushed and rebuilt
// mid-search instead of failing outright.
//
// The DFA computes leftmost-longest matches. Because a DFA state is the
// fusion of every NFA thread that reached it, per-alternative priority
// information (needed for Perl-style leftmost-first semantics) does not
// survive determinization; callers that need leftmost-first semantics use
// the backtrack package instead and treat this package as a fast,
// memory-bounded pre-filter or a leftmost-longest oracle.
package dfa

import (
	"sync"

	"github.com/coregx/redfa/prog"
	"github.com/coregx/redfa/workq"
)

// MatchKind selects how a search resolves ambiguity between multiple
// possible matches, mirroring RE2's Prog::MatchKind.
type MatchKind int

const (
	// LongestMatch prefers the match ending furthest to the right,
	// regardless of which alternative produced it. This is the only mode
	// a byte-at-a-time DFA can implement faithfully.
	LongestMatch MatchKind = iota

	// FirstMatch stops as soon as any match is found, without searching
	// for a longer one. Used for boolean "does this match" queries.
	FirstMatch

	// ManyMatch never stops early and, instead of collapsing a state's
	// reachable OpMatch instructions down to a single boolean, reports the
	// MatchID of every sub-pattern reached, for programs built with
	// prog.CompileMany.
	ManyMatch
)

// DFA runs searches over a single compiled program. A DFA is safe for
// concurrent use by any number of goroutines: state construction is
// serialized internally behind buildMu. Following an already-determinized
// transition never needs the lock, but the search loop's gapMatch peek
// (resolving the current gap's own pending assertions against the
// upcoming byte, one step ahead of the cached transition) re-derives its
// answer under buildMu on every byte rather than caching it, trading some
// throughput for a simple, obviously-correct implementation.
type DFA struct {
	prog *prog.Program
	kind MatchKind

	nslots int // byte classes + 1 (end-of-text pseudo-class)
	reps   []byte
	cache  *cache

	// buildMu serializes state determinization, matching RE2's mutex_,
	// which must be held any time the scratch Workqs or AddToQueue's
	// explicit stack are touched. Readers that only follow already-set
	// atomic transition pointers never take it.
	buildMu sync.Mutex
	q0, q1  *workq.Workq
	stack   []prog.ID

	start startTable

	maxClearsPerSearch int
	accel              *accelerator
}

// Config controls resource limits for a DFA.
type Config struct {
	// MemoryBudget bounds the estimated bytes charged to newly built
	// states before the cache resets itself and keeps going.
	MemoryBudget int64

	// MaxClearsPerSearch bounds how many times a single Search call may
	// trigger a cache reset before giving up (Search then reports
	// failed=true so the caller can retry with a different engine).
	MaxClearsPerSearch int
}

// DefaultConfig returns reasonable defaults: an 8 MiB state cache and up
// to 8 cache resets per search before giving up.
func DefaultConfig() Config {
	return Config{MemoryBudget: 8 << 20, MaxClearsPerSearch: 8}
}

// New builds a DFA over p. No NFA states are determinized yet; that
// happens lazily as searches touch each state.
func New(p *prog.Program, kind MatchKind, cfg Config) *DFA {
	if cfg.MemoryBudget <= 0 {
		cfg.MemoryBudget = DefaultConfig().MemoryBudget
	}
	if cfg.MaxClearsPerSearch <= 0 {
		cfg.MaxClearsPerSearch = DefaultConfig().MaxClearsPerSearch
	}
	nslots := p.ByteMapRange() + 1
	d := &DFA{
		prog:               p,
		kind:               kind,
		nslots:             nslots,
		reps:               p.ByteClasses().Representatives(),
		cache:              newCache(cfg.MemoryBudget),
		q0:                 workq.New(p.Size()),
		q1:                 workq.New(p.Size()),
		stack:              make([]prog.ID, 0, p.Size()),
		maxClearsPerSearch: cfg.MaxClearsPerSearch,
	}
	d.accel = newAccelerator(p)
	return d
}

// nextSlots returns the transition slot count new states are built with.
func (d *DFA) nextSlots() int { return d.nslots }

// Result carries a Search outcome.
type Result struct {
	Matched bool
	// End is the byte offset within text of the end of the match (for
	// run_forward searches) or its start (for reverse searches).
	End int
	// Failed reports that the search gave up (e.g. exhausted its cache
	// reset budget) rather than determining an answer; the caller should
	// retry with the backtrack package.
	Failed bool
	// Matches holds the MatchID of every sub-pattern whose OpMatch was
	// reached at End, for a ManyMatch DFA. Empty for LongestMatch/
	// FirstMatch searches.
	Matches []int
}

// Search looks for prog's pattern in text, treated as a subrange of
// context for the purposes of interpreting ^, $, \A, \z, \b and \B. If
// anchored, the match must begin at the start of text. If
// wantEarliestMatch, the search stops at the first match found instead of
// searching for the longest one. If runForward, the DFA scans left to
// right and reports the rightmost end of the best match; otherwise it
// scans right to left and reports the leftmost start.
func (d *DFA) Search(text, context []byte, anchored, wantEarliestMatch, runForward bool) Result {
	// FirstMatch DFAs never care about finding the longest match, only
	// whether one exists, so they always behave as if the caller asked
	// for the earliest one. ManyMatch DFAs do the opposite: they must
	// keep scanning so every reachable sub-pattern gets a chance to reach
	// OpMatch, so they never stop early regardless of what was asked.
	switch d.kind {
	case FirstMatch:
		wantEarliestMatch = true
	case ManyMatch:
		wantEarliestMatch = false
	}

	startAt := 0
	if !runForward {
		startAt = len(text)
	}
	startClears := d.cache.clears()
	st, canPrefixAccel := d.analyzeSearch(text, context, anchored, runForward, startAt)
	if st == nil || GiveUpState(st) || d.clearBudgetExceeded(startClears) {
		return Result{Failed: true}
	}
	if DeadState(st) {
		return Result{Matched: false}
	}
	if anchored {
		// An anchored search has no self-loop to return to, so a byte no
		// leaf accepts ends the search; skipping it would move the start.
		canPrefixAccel = false
	}

	params := searchParams{
		text:              text,
		context:           context,
		anchored:          anchored,
		wantEarliestMatch: wantEarliestMatch,
		runForward:        runForward,
		canPrefixAccel:    canPrefixAccel,
		start:             st,
		startClears:       startClears,
	}

	switch {
	case !canPrefixAccel && !wantEarliestMatch && runForward:
		return d.searchFFT(&params)
	case !canPrefixAccel && !wantEarliestMatch && !runForward:
		return d.searchFFF(&params)
	case !canPrefixAccel && wantEarliestMatch && runForward:
		return d.searchFTT(&params)
	case !canPrefixAccel && wantEarliestMatch && !runForward:
		return d.searchFTF(&params)
	case canPrefixAccel && !wantEarliestMatch && runForward:
		return d.searchTFT(&params)
	case canPrefixAccel && !wantEarliestMatch && !runForward:
		return d.searchTFF(&params)
	case canPrefixAccel && wantEarliestMatch && runForward:
		return d.searchTTT(&params)
	default:
		return d.searchTTF(&params)
	}
}

type searchParams struct {
	text, context     []byte
	anchored          bool
	wantEarliestMatch bool
	runForward        bool
	canPrefixAccel    bool
	start             *State
	// startClears is the cache's lifetime reset count sampled when this
	// search began, letting the search loop bound how many resets its own
	// execution triggers against maxClearsPerSearch.
	startClears int
}

// runOnByte returns the state reached from s on byte class c (or the
// pseudo-class d.prog.ByteMapRange() for end-of-text), determinizing it
// on demand if this is the first time (s, c) has been seen.
func (d *DFA) runOnByte(s *State, c int) *State {
	if p := s.next[c].Load(); p != nil {
		return p
	}
	return d.runOnByteSlow(s, c)
}

func (d *DFA) runOnByteSlow(s *State, c int) *State {
	saved := saveState(s)

	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	// Re-resolve s in case a concurrent reset happened between the
	// unlocked fast-path check and taking the lock.
	live := saved.restore(d)
	if GiveUpState(live) {
		return live
	}
	if p := live.next[c].Load(); p != nil {
		return p
	}

	next := d.determinizeByte(live, c)
	if GiveUpState(next) {
		// Transient: don't cache a budget failure as this transition's
		// permanent answer, since a later reset may leave headroom.
		return next
	}
	live.next[c].Store(next)
	return next
}

// gapMatch reports whether the gap s represents is itself a match once the
// upcoming byte class c becomes known, without consuming c or building a
// successor state. EndLine, EndText and the word-boundary assertions all
// depend on c, so a pattern that can only match through one of them (an
// interior (?m)...$ right before a '\n', for instance) only becomes
// decidable here: runWorkqOnByte only carries ByteRange leaves forward into
// the next gap, so an OpMatch reached purely by this closure has nowhere
// else to surface. The third return reports that the DFA gave up building
// s's thread set even after a cache flush.
func (d *DFA) gapMatch(s *State, c int) (matched bool, ids []int, gaveUp bool) {
	if DeadState(s) {
		return false, nil, false
	}
	saved := saveState(s)

	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	live := saved.restore(d)
	if GiveUpState(live) {
		return false, nil, true
	}
	if DeadState(live) {
		return false, nil, false
	}

	d.stateToWorkq(live, d.q0)
	atEOT := c == d.prog.ByteMapRange()
	curFlag := live.flag.empty() | d.endFlags(c, atEOT) | d.wordFlags(live.flag.lastWasWord(), c, atEOT)

	ismatch := false
	d.runWorkqOnEmptyString(d.q0, d.q1, curFlag, &ismatch)
	if !ismatch {
		return false, nil, false
	}
	if d.kind != ManyMatch {
		return true, nil, false
	}
	return true, matchIDsFrom(d.q1.Ids(), d.prog), false
}

// clearBudgetExceeded reports whether the cache has been reset more than
// maxClearsPerSearch times since startClears was sampled, meaning this
// search has thrashed the cache badly enough to give up rather than keep
// flushing and rebuilding indefinitely.
func (d *DFA) clearBudgetExceeded(startClears int) bool {
	return d.cache.clears()-startClears > d.maxClearsPerSearch
}

// determinizeByte computes the successor of s on byte class c. s represents
// the gap just before c; this proceeds in two steps: first
// runWorkqOnEmptyString resolves whatever empty-width assertions that gap
// left pending (EndLine/EndText/word-boundary all depend on c, the byte
// about to be consumed, so they could not be decided when s was built), then
// runWorkqOnByte actually consumes c into the next gap.
func (d *DFA) determinizeByte(s *State, c int) *State {
	if DeadState(s) {
		return deadState
	}

	d.stateToWorkq(s, d.q0)

	atEOT := c == d.prog.ByteMapRange()
	curFlag := s.flag.empty() | d.endFlags(c, atEOT) | d.wordFlags(s.flag.lastWasWord(), c, atEOT)

	ismatch := false
	d.runWorkqOnEmptyString(d.q0, d.q1, curFlag, &ismatch)

	if atEOT {
		// End-of-text is a sentinel: it only ever exists to let $/\z/\b
		// resolve against the true end of input, never to drive a real
		// byte transition (no OpByteRange may ever match it).
		if d.q1.Len() == 0 && !ismatch {
			return deadState
		}
		return d.workqToCachedState(d.q1, 0, ismatch, false)
	}

	// A match reached purely through the empty-string closure above belongs
	// to the gap s represents, not to the successor gap this call is
	// building: it is decidable only now, using c, but it describes a match
	// ending one byte earlier than anything this call's own output state
	// stands for. gapMatch resolves that same closure directly for the
	// search loop, attributed to the correct offset, so the successor
	// state's own match bit here must reflect only a match newly reached by
	// actually consuming c.
	ismatch = false
	nextBefore := d.beginFlags(c)
	d.runWorkqOnByte(d.q1, d.q0, c, nextBefore, &ismatch)

	if d.q0.Len() == 0 && !ismatch {
		return deadState
	}

	lastWasWord := d.isWordClass(c)
	return d.workqToCachedState(d.q0, nextBefore, ismatch, lastWasWord)
}

// endFlags returns the subset of prog.EmptyFlag decidable from the byte
// about to be consumed out of the current gap: EndLine/EndText hold at
// end-of-text, EndLine also holds just before a '\n'.
func (d *DFA) endFlags(c int, atEOT bool) prog.EmptyFlag {
	if atEOT {
		return prog.EmptyEndText | prog.EmptyEndLine
	}
	if d.representativeByte(c) == '\n' {
		return prog.EmptyEndLine
	}
	return 0
}

// wordFlags resolves \b/\B at the current gap by comparing the wordness of
// the byte that led into it (lastWasWord, remembered on the predecessor
// state) against the wordness of the byte about to be consumed out of it.
func (d *DFA) wordFlags(lastWasWord bool, c int, atEOT bool) prog.EmptyFlag {
	nowWord := !atEOT && d.isWordClass(c)
	if lastWasWord != nowWord {
		return prog.EmptyWordBoundary
	}
	return prog.EmptyNonWordBoundary
}

// beginFlags returns the subset of prog.EmptyFlag decidable for the gap c
// is about to be consumed into, from c alone: BeginLine holds just after a
// '\n'. BeginText never holds past the start of the search, which is
// handled separately by analyzeSearch.
func (d *DFA) beginFlags(c int) prog.EmptyFlag {
	if c < d.prog.ByteMapRange() && d.representativeByte(c) == '\n' {
		return prog.EmptyBeginLine
	}
	return 0
}

// isWordClass reports whether byte class c's representative byte is a word
// byte (matching \w), used to seed a state's "last consumed byte was a word
// byte" bit so a later word-boundary assertion can be resolved without
// re-inspecting the raw text.
func (d *DFA) isWordClass(c int) bool {
	if c >= d.prog.ByteMapRange() {
		return false // end-of-text pseudo-class
	}
	return isWordByteRep(d.representativeByte(c))
}
