package selection

import (
	"fmt"
	"testing"
)

func TestToggle(t *testing.T) {
	s := New()
	if !s.Toggle(4) || !s.Has(4) {
		t.Fatal("first Toggle should select")
	}
	if s.Toggle(4) || s.Has(4) {
		t.Fatal("second Toggle should deselect")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestIDs_InsertionOrder(t *testing.T) {
	s := New(12, 7)
	s.Add(31, 7, 4)
	if got := fmt.Sprint(s.IDs()); got != "[12 7 31 4]" {
		t.Errorf("IDs() = %s, want [12 7 31 4]", got)
	}
	s.Remove(7)
	s.Add(7)
	if got := fmt.Sprint(s.IDs()); got != "[12 31 4 7]" {
		t.Errorf("IDs() after re-add = %s", got)
	}
	ids := s.IDs()
	ids[0] = 99
	if s.Has(99) {
		t.Error("IDs() must return a copy")
	}
}

func TestSelectAllVisible_KeepsHidden(t *testing.T) {
	s := New(100)
	s.SelectAllVisible([]int{1, 2, 3})
	if s.Len() != 4 || !s.Has(100) {
		t.Errorf("IDs() = %v", s.IDs())
	}
}

func TestToggleAllVisible(t *testing.T) {
	s := New(100, 2)
	visible := []int{1, 2, 3}
	if s.AllVisibleSelected(visible) {
		t.Fatal("partial selection reported as all selected")
	}
	if !s.ToggleAllVisible(visible) || !s.AllVisibleSelected(visible) {
		t.Fatal("ToggleAllVisible should select all when some are missing")
	}
	if s.ToggleAllVisible(visible) {
		t.Fatal("ToggleAllVisible should deselect when all are selected")
	}
	if got := fmt.Sprint(s.IDs()); got != "[100]" {
		t.Errorf("IDs() = %s, want [100]", got)
	}
	if s.AllVisibleSelected(nil) || s.ToggleAllVisible(nil) {
		t.Error("empty visible list never counts as selected")
	}
}

func TestClear(t *testing.T) {
	s := New(1, 2, 3)
	s.Clear()
	if s.Len() != 0 || s.Has(1) || len(s.IDs()) != 0 {
		t.Errorf("after Clear: %v", s.IDs())
	}
	s.Add(5)
	if s.Len() != 1 {
		t.Error("set unusable after Clear")
	}
}
