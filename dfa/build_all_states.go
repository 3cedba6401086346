package dfa

// BuildAllStates performs a breadth-first walk of every state reachable
// from the eight start-state buckets, forcing RunOnByte across every byte
// class (and the end-of-text pseudo-class) at each one. It exists for
// exhaustive testing and for PossibleMatchRange, not for production
// search paths: eagerly building every state defeats the entire point of
// lazy determinization.
//
// visit, if non-nil, is called once for every newly built non-sentinel
// state, in the order first discovered.
func (d *DFA) BuildAllStates(context []byte, visit func(*State)) int {
	seen := map[*State]bool{deadState: true, fullMatchState: true, giveUpState: true}
	var queue []*State

	enqueue := func(s *State) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		if visit != nil {
			visit(s)
		}
		queue = append(queue, s)
	}

	for anchored := 0; anchored < 2; anchored++ {
		for bucket := startBucket(0); bucket < startBucketCount; bucket++ {
			pos := 1
			var ctx []byte
			switch bucket {
			case startBeginText:
				pos, ctx = 0, context
			case startBeginLine:
				ctx = []byte{'\n'}
			case startAfterWordChar:
				ctx = []byte{'a'}
			default:
				ctx = []byte{' '}
			}
			s, _ := d.analyzeSearch(ctx, ctx, anchored == 1, true, pos)
			enqueue(s)
		}
	}

	nslots := d.nextSlots()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for c := 0; c < nslots; c++ {
			enqueue(d.runOnByte(s, c))
		}
	}

	return len(seen) - 2
}

// PossibleMatchRange computes the lexicographically smallest and largest
// byte strings of length at most maxlen that could begin a match of the
// program anchored at the current start state, by always following the
// smallest (min) or largest (max) representative byte with an outgoing
// transition. It reports ok=false if the maximum walk does not terminate
// within maxlen steps without reaching a match or dead state, since that
// means the set of matching prefixes is unbounded (e.g. `a*` reachable
// through a self-loop) and no finite max string can be produced.
func (d *DFA) PossibleMatchRange(maxlen int) (min, max []byte, ok bool) {
	start, _ := d.analyzeSearch([]byte{}, []byte{}, true, true, 0)
	if DeadState(start) {
		return nil, nil, true
	}
	if GiveUpState(start) {
		return nil, nil, false
	}

	min = d.walkExtreme(start, maxlen, false)

	s := start
	for i := 0; i < maxlen; i++ {
		if s.IsMatch() || DeadState(s) {
			break
		}
		if GiveUpState(s) {
			return min, max, false
		}
		next, b, found := d.extremeTransition(s, true)
		if !found {
			break
		}
		max = append(max, b)
		s = next
		if i == maxlen-1 && !s.IsMatch() && !DeadState(s) {
			return min, max, false
		}
	}

	return min, max, true
}

func (d *DFA) walkExtreme(start *State, maxlen int, wantMax bool) []byte {
	var out []byte
	s := start
	for i := 0; i < maxlen; i++ {
		if s.IsMatch() || DeadState(s) || GiveUpState(s) {
			break
		}
		next, b, found := d.extremeTransition(s, wantMax)
		if !found {
			break
		}
		out = append(out, b)
		s = next
	}
	return out
}

// extremeTransition returns the successor reached via the smallest (or,
// if wantMax, largest) byte class with a live outgoing transition from s,
// along with that class's representative byte.
func (d *DFA) extremeTransition(s *State, wantMax bool) (*State, byte, bool) {
	nslots := d.nextSlots() - 1 // exclude end-of-text pseudo-class
	found := false
	var best *State
	var bestByte byte
	for c := 0; c < nslots; c++ {
		next := d.runOnByte(s, c)
		if next == nil || DeadState(next) || GiveUpState(next) {
			continue
		}
		b := d.representativeByte(c)
		if !found {
			found, best, bestByte = true, next, b
			continue
		}
		if wantMax && b > bestByte {
			best, bestByte = next, b
		} else if !wantMax && b < bestByte {
			best, bestByte = next, b
		}
	}
	return best, bestByte, found
}
