package h2core

import "testing"

func TestStreamTableGetOrCreate(t *testing.T) {
	table := NewStreamTable()
	if table.Has(1) {
		t.Fatal("fresh table reports Has(1)")
	}
	s := table.GetOrCreate(1)
	if s.State != StreamIdle {
		t.Fatalf("created status state = %v, want Idle", s.State)
	}
	if !table.Has(1) {
		t.Fatal("Has(1) false after GetOrCreate")
	}
	if table.GetOrCreate(1) != s {
		t.Fatal("GetOrCreate returned a different pointer on second call")
	}
}

func TestStreamTableDelete(t *testing.T) {
	table := NewStreamTable()
	table.GetOrCreate(1)
	table.Delete(1)
	if table.Has(1) {
		t.Fatal("Has(1) true after Delete")
	}
	if table.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", table.Len())
	}
}

func TestCountActiveExcludesIdleAndReserved(t *testing.T) {
	table := NewStreamTable()
	table.GetOrCreate(1).State = StreamIdle
	table.GetOrCreate(3).State = StreamReservedLocal
	table.GetOrCreate(5).State = StreamOpen
	table.GetOrCreate(7).State = StreamHalfClosedLocal
	table.GetOrCreate(9).State = StreamHalfClosedRemote
	table.GetOrCreate(11).State = StreamClosed

	if got := table.CountActive(); got != 3 {
		t.Fatalf("CountActive() = %d, want 3", got)
	}
}
