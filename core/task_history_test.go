package core

import "testing"

// TestTaskHistory_Ring tests the bounded history
// Main test items:
// 1. Recent returns newest first
// 2. Old records are overwritten once capacity is reached
// 3. limit <= 0 returns everything kept
func TestTaskHistory_Ring(t *testing.T) {
	h := newTaskHistory(3)

	if _, ok := h.Last(); ok {
		t.Fatal("Last() on empty history reported a record")
	}
	if h.Recent(5) != nil {
		t.Fatal("Recent() on empty history returned records")
	}

	for _, name := range []string{"a", "b", "c", "d"} {
		h.Add(TaskRecord{Name: name})
	}

	recent := h.Recent(0)
	if len(recent) != 3 || recent[0].Name != "d" || recent[1].Name != "c" || recent[2].Name != "b" {
		t.Errorf("Recent(0) = %+v, want d c b", recent)
	}
	if got := h.Recent(1); len(got) != 1 || got[0].Name != "d" {
		t.Errorf("Recent(1) = %+v, want d", got)
	}
	if last, ok := h.Last(); !ok || last.Name != "d" {
		t.Errorf("Last() = %+v, want d", last)
	}
}

func TestTaskHistory_DefaultCapacity(t *testing.T) {
	h := newTaskHistory(0)
	if len(h.items) != defaultTaskHistoryCapacity {
		t.Errorf("capacity = %d, want %d", len(h.items), defaultTaskHistoryCapacity)
	}
}
