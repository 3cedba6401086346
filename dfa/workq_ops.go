package dfa

import (
	"github.com/coregx/redfa/prog"
	"github.com/coregx/redfa/workq"
)

// addToQueue adds instruction id0 to q, following every epsilon edge
// reachable from it under the empty-width assertions known to hold
// (flag). It uses an explicit stack rather than recursion so a
// pathological program with long alternation or repetition chains cannot
// overflow the goroutine stack.
//
// The dispatch below implements the same rule for every opcode: entries
// are inserted into q in the order first reached (workqToCachedState
// later sorts them, which is what makes two equivalent thread sets hash
// and compare identically regardless of which alternative was explored
// first), and whenever the current instruction is not the last member of
// its alternation list, its sibling at id+1 is pushed to be explored
// afterward. Nop, Capture and AltMatch keep walking through Out
// immediately; EmptyWidth does too, but only if its required assertions
// are a subset of flag. Match, ByteRange and Fail are closure leaves: they
// consume a byte (ByteRange), end a search (Match), or lead nowhere
// (Fail), so nothing beyond queuing them and their sibling is needed.
func (d *DFA) addToQueue(q *workq.Workq, id0 prog.ID, flag prog.EmptyFlag, ismatch *bool) {
	if id0 == prog.InvalidID {
		return
	}
	d.stack = append(d.stack[:0], id0)
	for len(d.stack) > 0 {
		id := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]

		for id != prog.InvalidID && !q.Contains(id) {
			q.Insert(id)
			inst := d.prog.Inst(id)

			switch inst.Op {
			case prog.OpNop, prog.OpCapture, prog.OpAltMatch:
				if !inst.Last {
					d.stack = append(d.stack, id+1)
				}
				id = inst.Out
				continue

			case prog.OpEmptyWidth:
				if !inst.Last {
					d.stack = append(d.stack, id+1)
				}
				if inst.Empty&^flag != 0 {
					id = prog.InvalidID
					break
				}
				id = inst.Out
				continue

			default: // OpMatch, OpByteRange, OpFail
				if !inst.Last {
					d.stack = append(d.stack, id+1)
				}
				if inst.Op == prog.OpMatch && ismatch != nil {
					*ismatch = true
				}
				id = prog.InvalidID
			}
		}
	}
}

// runWorkqOnByte steps every ByteRange leaf in q that accepts the byte
// represented by class c, closing each successor under flag into nq. It
// reports via ismatch whether any resulting thread is a match.
func (d *DFA) runWorkqOnByte(q, nq *workq.Workq, c int, flag prog.EmptyFlag, ismatch *bool) {
	nq.Clear()
	if c >= d.prog.ByteMapRange() {
		// End-of-text is not a real byte; no OpByteRange instruction may
		// ever match it, only the empty-width closure resolved by
		// runWorkqOnEmptyString applies there.
		return
	}
	b := d.representativeByte(c)
	q.Walk(func(id prog.ID) {
		inst := d.prog.Inst(id)
		if inst.Op == prog.OpByteRange && inst.Matches(b) {
			d.addToQueue(nq, inst.Out, flag, ismatch)
		}
	})
}

// runWorkqOnEmptyString recomputes nq from q under a new set of
// empty-width flags without consuming a byte. It is used to resolve
// assertions (like word boundaries) that could not be decided until the
// following byte, or the following end-of-text, became known.
func (d *DFA) runWorkqOnEmptyString(q, nq *workq.Workq, flag prog.EmptyFlag, ismatch *bool) {
	nq.Clear()
	q.Walk(func(id prog.ID) {
		d.addToQueue(nq, id, flag, ismatch)
	})
}

// stateToWorkq restores a cached state's thread set into q verbatim: s's
// instruction list already IS a fully-closed queue, so no re-closure is
// needed, just re-insertion.
func (d *DFA) stateToWorkq(s *State, q *workq.Workq) {
	q.Clear()
	for _, id := range s.insts {
		q.Insert(id)
	}
}

// workqToCachedState looks up (or builds and caches) the State
// corresponding to q's current contents plus flag.
func (d *DFA) workqToCachedState(q *workq.Workq, empty prog.EmptyFlag, ismatch, lastWasWord bool) *State {
	insts := sortInsts(q.Ids())
	flag := makeFlag(empty, ismatch, lastWasWord)
	key := stateKey(flag, insts)

	if s, ok := d.cache.get(key); ok {
		return s
	}
	s, ok := d.cache.insert(key, insts, flag, d.nextSlots())
	if ok {
		return s
	}

	// Budget exhausted: flush and retry once. The caller (runOnByteSlow)
	// holds buildMu, so no other goroutine can be mid-determinization.
	d.cache.reset()
	s, ok = d.cache.insert(key, insts, flag, d.nextSlots())
	if !ok {
		// A single state's own footprint exceeds the entire budget; this
		// cannot be recovered by flushing, no matter how many times we
		// retry. Report give-up so the caller can fall back to another
		// engine instead of treating this as a plain non-match.
		return giveUpState
	}
	return s
}

// representativeByte returns a byte belonging to equivalence class c,
// suitable for testing ByteRange instructions since every byte in a class
// behaves identically against every instruction in the program.
func (d *DFA) representativeByte(c int) byte {
	if c < len(d.reps) {
		return d.reps[c]
	}
	return 0
}
