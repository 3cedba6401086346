package dfa

import (
	"github.com/coregx/redfa/prog"
	"github.com/coregx/redfa/simd"
)

// accelerator recognizes DFA states whose only outgoing ByteRange leaves
// require one of a small, fixed set of concrete bytes, and in that case
// lets the search loop skip forward with a vectorized byte scan instead
// of stepping the DFA one byte at a time through uninteresting input.
// This mirrors RE2's can_prefix_accel / PrefixAccel machinery, built here
// on top of this module's own SIMD byte-search primitives.
type accelerator struct {
	prog *prog.Program
}

func newAccelerator(p *prog.Program) *accelerator {
	return &accelerator{prog: p}
}

// requiredBytes returns the distinct single bytes that must appear next
// for any thread in s to make progress, or nil if s has no ByteRange
// leaves, has one spanning more than a single byte, or needs more bytes
// than the available scan primitives cover.
func (a *accelerator) requiredBytes(s *State) []byte {
	if s == nil || DeadState(s) || FullMatchState(s) {
		return nil
	}
	var out []byte
	seen := [256]bool{}
	for _, id := range s.insts {
		inst := a.prog.Inst(id)
		if inst.Op != prog.OpByteRange {
			continue
		}
		if inst.Lo != inst.Hi {
			return nil
		}
		if !seen[inst.Lo] {
			seen[inst.Lo] = true
			out = append(out, inst.Lo)
			if len(out) > 3 {
				return nil
			}
		}
	}
	return out
}

func (a *accelerator) canAccelerate(s *State) bool {
	return a.requiredBytes(s) != nil
}

// skip returns the offset within text (at or after pos) of the next byte
// that could possibly advance a thread in s, or len(text) if none remain.
func (a *accelerator) skip(s *State, text []byte, pos int) int {
	bytes := a.requiredBytes(s)
	if bytes == nil {
		return pos
	}
	var idx int
	switch len(bytes) {
	case 1:
		idx = simd.Memchr(text[pos:], bytes[0])
	case 2:
		idx = simd.Memchr2(text[pos:], bytes[0], bytes[1])
	default:
		idx = simd.Memchr3(text[pos:], bytes[0], bytes[1], bytes[2])
	}
	if idx < 0 {
		return len(text)
	}
	return pos + idx
}

// isWordByteRep reports whether b is a word byte (matching \w: letters,
// digits, underscore), the same definition prog.EmptyFlags and start.go's
// isWordByte use for \b / \B and the begin-line start buckets.
func isWordByteRep(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') || b == '_'
}
