package dfa

import (
	"sync"

	"github.com/coregx/redfa/prog"
)

// cache stores every determinized State built so far, keyed by its
// instruction set and flag word. It is bounded by a memory budget rather
// than a state count, following the "content-addressed state cache with a
// byte budget" design: once the budget is exhausted the whole cache is
// dropped (reset) and search continues, rebuilding states on demand.
//
// The RWMutex here plays the role of RE2's cache_rwlock: many searches
// hold it for reading while following already-computed transitions or
// looking up a state by key; only building a brand-new state or flushing
// the cache takes the write lock.
type cache struct {
	mu sync.RWMutex

	states map[string]*State
	nextID uint32

	memBudget   int64
	stateBudget int64

	clearCount int
	hits       uint64
	misses     uint64
}

func newCache(memBudget int64) *cache {
	return &cache{
		states:      make(map[string]*State),
		nextID:      3, // 0, 1 and 2 are reserved for deadState/fullMatchState/giveUpState
		memBudget:   memBudget,
		stateBudget: memBudget,
	}
}

// stateKey builds the content-addressing key for a (flag, sorted insts) pair.
// insts must already be sorted and deduplicated (see sortInsts).
func stateKey(flag Flag, insts []prog.ID) string {
	buf := make([]byte, 4+4*len(insts))
	putU32(buf[0:4], uint32(flag))
	for i, id := range insts {
		putU32(buf[4+4*i:8+4*i], uint32(id))
	}
	return string(buf)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// get looks up an already-built state by key.
func (c *cache) get(key string) (*State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[key]
	if ok {
		c.hits++
	}
	return s, ok
}

// insert stores a freshly built state, charging its estimated size
// against the memory budget. It returns (state, ok); ok is false once the
// budget is exhausted, and the caller must reset the cache before
// retrying.
func (c *cache) insert(key string, insts []prog.ID, flag Flag, nslots int) (*State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.states[key]; ok {
		c.hits++
		return existing, true
	}

	cost := approxByteSize(len(insts), nslots)
	if cost > c.stateBudget {
		c.misses++
		return nil, false
	}

	s := newState(c.nextID, insts, flag, nslots)
	c.nextID++
	c.states[key] = s
	c.stateBudget -= cost
	c.misses++
	return s, true
}

// reset drops every cached state and restores the full memory budget. Any
// *State pointer obtained before this call must not be dereferenced
// afterward except through the sentinels (deadState / fullMatchState /
// giveUpState), which are never stored in the map and so remain valid
// forever; use a stateSaver to carry a live state's identity across a
// reset.
func (c *cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[string]*State)
	c.nextID = 3
	c.stateBudget = c.memBudget
	c.clearCount++
}

func (c *cache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}

// clears returns the number of times reset has fired over this cache's
// lifetime, used by Search to bound how many resets a single search may
// trigger before giving up.
func (c *cache) clears() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clearCount
}

func (c *cache) stats() (hits, misses uint64, clears int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, c.clearCount
}

// stateSaver captures a state's structural identity (its instruction set
// and flag word) so it can be recovered by key lookup or rebuilt after a
// cache reset invalidates the *State pointer itself. Sentinel states
// (dead, full-match, nil) need no such treatment since they never live in
// the map.
type stateSaver struct {
	insts   []prog.ID
	flag    Flag
	dead    bool
	full    bool
	givenUp bool
	empty   bool
}

func saveState(s *State) stateSaver {
	switch {
	case s == nil:
		return stateSaver{empty: true}
	case DeadState(s):
		return stateSaver{dead: true}
	case FullMatchState(s):
		return stateSaver{full: true}
	case GiveUpState(s):
		return stateSaver{givenUp: true}
	default:
		insts := make([]prog.ID, len(s.insts))
		copy(insts, s.insts)
		return stateSaver{insts: insts, flag: s.flag}
	}
}

// restore looks up (or, if the cache was reset and lost it, re-inserts)
// the equivalent state. d supplies the transition slot count.
func (ss stateSaver) restore(d *DFA) *State {
	switch {
	case ss.empty:
		return nil
	case ss.dead:
		return deadState
	case ss.full:
		return fullMatchState
	case ss.givenUp:
		return giveUpState
	default:
		key := stateKey(ss.flag, ss.insts)
		if s, ok := d.cache.get(key); ok {
			return s
		}
		s, ok := d.cache.insert(key, ss.insts, ss.flag, d.nextSlots())
		if ok {
			return s
		}
		// Budget was immediately exhausted again; flush and retry once,
		// mirroring workqToCachedState's own recovery.
		d.cache.reset()
		s, ok = d.cache.insert(key, ss.insts, ss.flag, d.nextSlots())
		if !ok {
			return giveUpState
		}
		return s
	}
}
