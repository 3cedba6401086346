package workq

import "testing"

func TestInsertContains(t *testing.T) {
	q := New(16)
	if q.Contains(3) {
		t.Fatal("empty queue should not contain 3")
	}
	q.Insert(3)
	if !q.Contains(3) {
		t.Fatal("queue should contain 3 after insert")
	}
	if q.Contains(4) {
		t.Fatal("queue should not contain 4")
	}
}

func TestInsertIdempotent(t *testing.T) {
	q := New(16)
	q.Insert(5)
	q.Insert(5)
	q.Insert(5)
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	q := New(16)
	order := []uint32{7, 2, 9, 0, 5}
	for _, id := range order {
		q.Insert(id)
	}
	got := q.Ids()
	if len(got) != len(order) {
		t.Fatalf("Ids() len = %d, want %d", len(got), len(order))
	}
	for i, id := range order {
		if got[i] != id {
			t.Errorf("Ids()[%d] = %d, want %d", i, got[i], id)
		}
	}
}

func TestClearIsCheapAndCorrect(t *testing.T) {
	q := New(16)
	q.Insert(1)
	q.Insert(2)
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", q.Len())
	}
	if q.Contains(1) || q.Contains(2) {
		t.Fatal("cleared queue should not contain stale ids")
	}
	// Re-inserting a previously-seen id after Clear must work: this
	// exercises the sparse/dense staleness check rather than just size.
	q.Insert(2)
	if !q.Contains(2) {
		t.Fatal("re-insert after Clear should succeed")
	}
	if q.Contains(1) {
		t.Fatal("id not re-inserted should stay absent after Clear")
	}
}

func TestMarkDoesNotAffectMembership(t *testing.T) {
	q := New(16)
	q.Insert(1)
	q.Mark()
	q.Insert(2)

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (marks excluded)", q.Len())
	}

	var sawMark bool
	var ids []uint32
	q.WalkMarked(func(id uint32, mark bool) {
		if mark {
			sawMark = true
			return
		}
		ids = append(ids, id)
	})
	if !sawMark {
		t.Error("WalkMarked should report the mark")
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("WalkMarked ids = %v, want [1 2]", ids)
	}
}

func TestWalkSkipsMarks(t *testing.T) {
	q := New(16)
	q.Insert(10)
	q.Mark()
	q.Mark()
	q.Insert(20)

	var visited []uint32
	q.Walk(func(id uint32) { visited = append(visited, id) })
	if len(visited) != 2 || visited[0] != 10 || visited[1] != 20 {
		t.Errorf("Walk visited = %v, want [10 20]", visited)
	}
}

func TestCap(t *testing.T) {
	q := New(42)
	if q.Cap() != 42 {
		t.Errorf("Cap() = %d, want 42", q.Cap())
	}
}
