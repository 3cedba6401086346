package prog

// fragment is a partially-built piece of a program: the id of its entry
// instruction and the set of dangling Out edges still waiting to be patched
// to whatever comes next. This is the classical Thompson-construction
// patch-list technique, adapted so that "split" is never its own opcode:
// alternation is expressed by placing dispatch instructions at consecutive
// ids and using Last to mark the final member (see AddToQueue in the dfa
// and backtrack packages).
type fragment struct {
	start ID
	out   []ID // instruction ids whose Out field is still unset
}

// Builder assembles a Program instruction by instruction. It is not safe
// for concurrent use; a single goroutine drives compilation of one pattern
// (or one merged multi-pattern program) at a time.
type Builder struct {
	insts        []Inst
	captureCount int
	listCount    int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// emit appends inst and returns its id.
func (b *Builder) emit(inst Inst) ID {
	id := ID(len(b.insts))
	b.insts = append(b.insts, inst)
	return id
}

// patch sets the Out field of every instruction id in list to target.
func (b *Builder) patch(list []ID, target ID) {
	for _, id := range list {
		b.insts[id].Out = target
	}
}

// byteRange emits a single-instruction fragment matching [lo, hi]. Last is
// set because a standalone instruction (one not placed by alt/altByteRanges
// as part of a multi-member dispatch) has no sibling at id+1 to fall
// through to; AddToQueue and the backtracker both use Last to decide
// whether id+1 belongs to the same alternation.
func (b *Builder) byteRange(lo, hi byte) fragment {
	id := b.emit(Inst{Op: OpByteRange, Lo: lo, Hi: hi, Last: true})
	return fragment{start: id, out: []ID{id}}
}

// emptyWidth emits a single-instruction fragment asserting flags.
func (b *Builder) emptyWidth(flags EmptyFlag) fragment {
	id := b.emit(Inst{Op: OpEmptyWidth, Empty: flags, Last: true})
	return fragment{start: id, out: []ID{id}}
}

// capture emits a single-instruction fragment recording position into reg.
func (b *Builder) capture(reg uint32) fragment {
	id := b.emit(Inst{Op: OpCapture, Cap: reg, Last: true})
	return fragment{start: id, out: []ID{id}}
}

// nop emits a single-instruction pass-through fragment, used as an
// alternation dispatch slot when a branch's own start cannot be relocated
// to a consecutive id.
func (b *Builder) nop() fragment {
	id := b.emit(Inst{Op: OpNop, Last: true})
	return fragment{start: id, out: []ID{id}}
}

// empty returns a fragment that matches the empty string: its start and
// its single out-edge are the same not-yet-emitted slot, created lazily by
// wrapping in a Nop so callers always have a concrete start id.
func (b *Builder) empty() fragment {
	return b.nop()
}

// cat concatenates fragments in sequence, patching each one's dangling
// edges to the next fragment's start.
func (b *Builder) cat(frags ...fragment) fragment {
	if len(frags) == 0 {
		return b.empty()
	}
	result := frags[0]
	for _, f := range frags[1:] {
		b.patch(result.out, f.start)
		result = fragment{start: result.start, out: f.out}
	}
	return result
}

// alt builds an alternation dispatch list. Each branch is tried in order;
// the branches are exposed to the DFA and Backtracker as consecutive
// instructions with Last set only on the final one, per the AddToQueue
// fallthrough rule. Every branch, byte-range branches included, is reached
// through a Nop dispatch slot since its own instructions were already
// emitted elsewhere and cannot be relocated; altByteRanges is the variant
// that lays byte ranges out directly.
func (b *Builder) alt(frags ...fragment) fragment {
	if len(frags) == 0 {
		return b.empty()
	}
	if len(frags) == 1 {
		return frags[0]
	}

	dispatch := make([]ID, len(frags))
	for i, f := range frags {
		id := b.emit(Inst{Op: OpNop, Out: f.start})
		dispatch[i] = id
	}
	for i, id := range dispatch {
		b.insts[id].Last = (i == len(dispatch)-1)
	}

	var out []ID
	for _, f := range frags {
		out = append(out, f.out...)
	}
	return fragment{start: dispatch[0], out: out}
}

// altByteRanges lays n [lo,hi] byte ranges out directly as consecutive
// alternation members, with no Nop indirection, matching how RE2 encodes a
// character class as a run of ByteRange instructions.
func (b *Builder) altByteRanges(ranges [][2]byte) fragment {
	if len(ranges) == 0 {
		return b.empty()
	}
	ids := make([]ID, len(ranges))
	for i, r := range ranges {
		ids[i] = b.emit(Inst{Op: OpByteRange, Lo: r[0], Hi: r[1]})
	}
	for i, id := range ids {
		b.insts[id].Last = (i == len(ids)-1)
	}
	return fragment{start: ids[0], out: ids}
}

// dispatchPair emits two consecutive alternation slots trying preferred
// first, then the other, and returns their ids in try-order.
func (b *Builder) dispatchPair(preferredOut, otherOut ID) (first, second ID) {
	first = b.emit(Inst{Op: OpNop, Out: preferredOut})
	second = b.emit(Inst{Op: OpNop, Out: otherOut, Last: true})
	return first, second
}

// star builds e* (zero or more) around sub, looping sub back into its own
// entry dispatch. Greedy prefers entering sub again; lazy prefers exiting.
func (b *Builder) star(sub fragment, greedy bool) fragment {
	var enter, skip ID
	if greedy {
		enter, skip = b.dispatchPair(sub.start, InvalidID)
	} else {
		skip, enter = b.dispatchPair(InvalidID, sub.start)
	}
	b.patch(sub.out, enter)
	return fragment{start: enter, out: []ID{skip}}
}

// plus builds e+ (one or more): sub must run once, then loops the same
// way star does.
func (b *Builder) plus(sub fragment, greedy bool) fragment {
	var enter, skip ID
	if greedy {
		enter, skip = b.dispatchPair(sub.start, InvalidID)
	} else {
		skip, enter = b.dispatchPair(InvalidID, sub.start)
	}
	b.patch(sub.out, enter)
	return fragment{start: sub.start, out: []ID{skip}}
}

// quest builds e? (zero or one).
func (b *Builder) quest(sub fragment, greedy bool) fragment {
	var enter, skip ID
	if greedy {
		enter, skip = b.dispatchPair(sub.start, InvalidID)
	} else {
		skip, enter = b.dispatchPair(InvalidID, sub.start)
	}
	return fragment{start: enter, out: append([]ID{skip}, sub.out...)}
}

// match emits a Match instruction for pattern id and patches frag into it.
func (b *Builder) match(frag fragment, matchID int) ID {
	id := b.emit(Inst{Op: OpMatch, MatchID: matchID, Last: true})
	b.patch(frag.out, id)
	return id
}

// altMatch emits n consecutive AltMatch instructions, one per pattern in a
// multi-pattern program, each falling through to the next via Last until
// the final one, which alone carries Last=true. Out is left at its zero
// value and the returned fragment has no dangling edges to patch; the dfa
// package's closure follows Out for AltMatch (see OpAltMatch).
func (b *Builder) altMatch(n int) fragment {
	ids := make([]ID, n)
	for i := 0; i < n; i++ {
		ids[i] = b.emit(Inst{Op: OpAltMatch})
	}
	for i, id := range ids {
		b.insts[id].Last = (i == len(ids)-1)
	}
	return fragment{start: ids[0]}
}

// fail emits a dead-end instruction.
func (b *Builder) fail() fragment {
	id := b.emit(Inst{Op: OpFail, Last: true})
	return fragment{start: id}
}

// allocCapture reserves a fresh pair of capture registers and returns the
// opening register number; the closing register is opening+1.
func (b *Builder) allocCapture() uint32 {
	reg := uint32(b.captureCount * 2)
	b.captureCount++
	return reg
}
