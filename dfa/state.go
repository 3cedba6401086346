package dfa

import (
	"sort"
	"sync/atomic"

	"github.com/coregx/redfa/prog"
)

// Flag packs the empty-width assertions that held on the way into a state
// together with a handful of one-bit markers, mirroring RE2's State::flag_
// layout (kFlagEmptyMask / kFlagMatch / kFlagLastWord).
type Flag uint32

const (
	flagEmptyMask Flag = 0xFF // low byte: prog.EmptyFlag bits in effect
	flagMatch     Flag = 0x100
	flagLastWord  Flag = 0x200
)

func (f Flag) empty() prog.EmptyFlag { return prog.EmptyFlag(f & flagEmptyMask) }
func (f Flag) isMatch() bool         { return f&flagMatch != 0 }
func (f Flag) lastWasWord() bool     { return f&flagLastWord != 0 }

func makeFlag(empty prog.EmptyFlag, isMatch, lastWasWord bool) Flag {
	f := Flag(empty) & flagEmptyMask
	if isMatch {
		f |= flagMatch
	}
	if lastWasWord {
		f |= flagLastWord
	}
	return f
}

// State is a single DFA state: a sorted, deduplicated list of program
// instruction ids (the NFA thread set this state represents), the
// empty-width flags in effect on the way into it, and one outgoing
// transition slot per byte equivalence class plus one for end-of-text.
//
// Transition slots are atomic pointers so that a search thread that finds
// an already-computed transition never needs to take a lock: the only
// time a lock is required is the first time a given (state, byte class)
// pair is seen and the successor still needs to be determinized (see
// dfa.go's runOnByte).
type State struct {
	id    uint32
	insts []prog.ID
	flag  Flag
	next  []atomic.Pointer[State]
}

// IsMatch reports whether reaching this state means the search has found
// a match ending at the current position.
func (s *State) IsMatch() bool {
	if s == nil {
		return false
	}
	return s.flag.isMatch()
}

// MatchIDs returns the MatchID of every OpMatch instruction in s's thread
// set, deduplicated and sorted, for a ManyMatch search. AddToQueue never
// drops a reachable OpMatch id regardless of sibling order, so this is
// exactly the set of sub-patterns that matched at this state.
func (s *State) MatchIDs(p *prog.Program) []int {
	if s == nil || DeadState(s) || FullMatchState(s) {
		return nil
	}
	return matchIDsFrom(s.insts, p)
}

// matchIDsFrom scans a raw instruction id list (a state's own insts, or a
// scratch workq's contents) for OpMatch instructions and returns their
// MatchIDs, deduplicated and sorted.
func matchIDsFrom(insts []prog.ID, p *prog.Program) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, id := range insts {
		inst := p.Inst(id)
		if inst.Op != prog.OpMatch || seen[inst.MatchID] {
			continue
		}
		seen[inst.MatchID] = true
		ids = append(ids, inst.MatchID)
	}
	sort.Ints(ids)
	return ids
}

// deadState, fullMatchState and giveUpState are sentinel states shared by
// every DFA built from every program. deadState marks "no possible
// continuation"; fullMatchState marks "already matched, and any further
// byte keeps matching" (only reachable for unanchored search-for-existence,
// never for a program that must also verify AnchorEnd); giveUpState marks
// "budget exhausted, this state cannot be built even after a cache flush",
// distinct from deadState so a caller can tell an exhausted search apart
// from a genuine non-match and fall back to another engine.
var (
	deadState      = &State{id: 0}
	fullMatchState = &State{id: 1}
	giveUpState    = &State{id: 2}
)

// DeadState reports whether s is the shared dead-end sentinel.
func DeadState(s *State) bool { return s == deadState }

// FullMatchState reports whether s is the shared already-matched sentinel.
func FullMatchState(s *State) bool { return s == fullMatchState }

// GiveUpState reports whether s is the shared budget-exhausted sentinel.
func GiveUpState(s *State) bool { return s == giveUpState }

// newState allocates a state with nslots outgoing transition slots, all
// initially nil (meaning "not yet determinized").
func newState(id uint32, insts []prog.ID, flag Flag, nslots int) *State {
	return &State{
		id:    id,
		insts: insts,
		flag:  flag,
		next:  make([]atomic.Pointer[State], nslots),
	}
}

// approxByteSize estimates the heap footprint of a state for the purposes
// of the cache's memory budget: the struct itself, one instruction id per
// entry, and one atomic pointer per transition slot.
func approxByteSize(ninst, nslots int) int64 {
	const stateOverhead = 64 // id + flag (each padded to 8) + two slice headers
	const instSize = 4       // prog.ID is a uint32
	const ptrSize = 8
	return int64(stateOverhead) + int64(ninst)*instSize + int64(nslots)*ptrSize
}

// sortInsts sorts and deduplicates an instruction id slice in place,
// returning the deduplicated prefix. Sorted order makes two states with
// the same underlying thread set compare and hash identically regardless
// of the order AddToQueue happened to visit them in.
func sortInsts(insts []prog.ID) []prog.ID {
	sort.Slice(insts, func(i, j int) bool { return insts[i] < insts[j] })
	if len(insts) == 0 {
		return insts
	}
	out := insts[:1]
	for _, id := range insts[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
