package dfa

import (
	"sync"
	"sync/atomic"

	"github.com/coregx/redfa/prog"
)

// Eight cached start-state slots, matching RE2's kStartBeginText /
// kStartBeginLine / kStartAfterWordChar / kStartAfterNonWordChar crossed
// with anchored/unanchored. The start state is closed only under what the
// bucket itself determines (EmptyBeginText / EmptyBeginLine and whether
// the previous byte was a word byte); end-of-line, end-of-text and word
// boundary assertions depend on the byte after the start position and are
// resolved on the first transition, so two searches that land in the same
// bucket always want the same state.
type startBucket int

const (
	startBeginText startBucket = iota
	startBeginLine
	startAfterWordChar
	startAfterNonWordChar
	startBucketCount
)

type startTable struct {
	mu    sync.Mutex // guards first-time population; reads use the atomics
	slots [2][startBucketCount]atomic.Pointer[State]
}

func bucketFor(context []byte, pos int) startBucket {
	if pos == 0 {
		return startBeginText
	}
	switch prev := context[pos-1]; {
	case prev == '\n':
		return startBeginLine
	case isWordByte(prev):
		return startAfterWordChar
	default:
		return startAfterNonWordChar
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') || b == '_'
}

func anchoredIdx(anchored bool) int {
	if anchored {
		return 1
	}
	return 0
}

// analyzeSearch resolves the start state for a search and whether the
// program's compiled prefix makes it eligible for byte-scan acceleration
// from that state. pos is the absolute offset of the search's edge within
// context (text.begin() for a forward search, text.end() for a reverse
// one).
func (d *DFA) analyzeSearch(text, context []byte, anchored, runForward bool, pos int) (*State, bool) {
	bucket := bucketFor(context, pos)
	idx := anchoredIdx(anchored)

	if s := d.start.slots[idx][bucket].Load(); s != nil {
		return s, d.accel.canAccelerate(s)
	}

	d.buildMu.Lock()
	defer d.buildMu.Unlock()

	if s := d.start.slots[idx][bucket].Load(); s != nil {
		return s, d.accel.canAccelerate(s)
	}

	flag := prog.EmptyFlags(context, pos) & (prog.EmptyBeginText | prog.EmptyBeginLine)

	startID := d.prog.StartUnanchored()
	if anchored {
		startID = d.prog.Start()
	}
	if !runForward {
		// Reverse search reuses the same program graph: no reversed
		// program is built, and the closure is seeded from the anchored
		// start id using the flags at pos.
		startID = d.prog.Start()
	}

	d.q0.Clear()
	ismatch := false
	lastWasWord := bucket == startAfterWordChar
	d.addToQueue(d.q0, startID, flag, &ismatch)

	var s *State
	if d.q0.Len() == 0 && !ismatch {
		s = deadState
	} else {
		s = d.workqToCachedState(d.q0, flag, ismatch, lastWasWord)
	}

	if !GiveUpState(s) {
		// A give-up is transient (budget pressure at this particular
		// moment); caching it here would wedge this start bucket for
		// every future search even after the cache has room again.
		d.start.slots[idx][bucket].Store(s)
	}
	return s, d.accel.canAccelerate(s)
}
