package h2core

import (
	"testing"

	"github.com/valyala/fastrand"
)

func TestPriorityManagerAddIsReady(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.Add(3)

	id, ok := p.Next()
	if !ok || id != 1 {
		t.Fatalf("Next() = (%d, %v), want (1, true)", id, ok)
	}
	id, ok = p.Next()
	if !ok || id != 3 {
		t.Fatalf("Next() = (%d, %v), want (3, true)", id, ok)
	}
	if _, ok = p.Next(); ok {
		t.Fatal("Next() on empty queue returned ok=true")
	}
}

func TestSetDependencyMovesOutOfReady(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.Add(3)
	p.SetDependency(3, 1)

	id, ok := p.Next()
	if !ok || id != 1 {
		t.Fatalf("Next() = (%d, %v), want (1, true)", id, ok)
	}
	if _, ok = p.Next(); ok {
		t.Fatal("stream 3 should no longer be root-level ready after SetDependency")
	}
}

func TestSetDependencyCycleAvoidanceSwap(t *testing.T) {
	// 1 -> 3 -> 5 (5 depends on 3, 3 depends on 1). Making 1 depend on 5
	// would create a cycle; 5 must instead take 1's old position (root).
	p := NewPriorityManager()
	p.Add(1)
	p.AddWithDependency(3, 1)
	p.AddWithDependency(5, 3)

	p.SetDependency(1, 5)

	if !p.isDescendant(5, 1) {
		t.Fatal("1 should now be a descendant of 5")
	}
	if p.isDescendant(1, 5) {
		t.Fatal("5 should no longer be a descendant of 1 (cycle not broken)")
	}
}

func TestSetExclusiveReparentsFormerChildren(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.AddWithDependency(3, 1)
	p.AddWithDependency(5, 1)
	p.Add(7)

	p.SetExclusive(7, 1)

	if !p.isDescendant(7, 3) {
		t.Fatal("3 should now be a descendant of 7")
	}
	if !p.isDescendant(7, 5) {
		t.Fatal("5 should now be a descendant of 7")
	}
	if !p.isDescendant(1, 7) {
		t.Fatal("7 should remain a descendant of 1")
	}
}

func TestSetExclusiveRoutesLaterInsertionUnderExclusiveChild(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.Add(7)

	p.SetExclusive(7, 1)

	// A later direct child of 1 must be routed under 7, 1's exclusive
	// child, not attached to 1 directly.
	p.AddWithDependency(9, 1)

	if p.nodes[9].parent != 7 {
		t.Fatalf("9's parent = %d, want 7 (1's exclusive child)", p.nodes[9].parent)
	}
	if _, direct := p.nodes[1].children[9]; direct {
		t.Fatal("9 should not be a direct child of 1")
	}
	if _, direct := p.nodes[7].children[9]; !direct {
		t.Fatal("9 should be a direct child of 7")
	}
}

func TestRetireReparentsChildrenToGrandparent(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.AddWithDependency(3, 1)
	p.AddWithDependency(5, 3)

	p.Retire(3)

	if !p.isDescendant(1, 5) {
		t.Fatal("5 should be reparented under 1 after 3 retires")
	}
}

func TestRetireOrphanPromotesToRoot(t *testing.T) {
	p := NewPriorityManager()
	p.Add(1)
	p.AddWithDependency(3, 1)

	p.Retire(1)

	id, ok := p.Next()
	if !ok || id != 3 {
		t.Fatalf("Next() after retiring root parent = (%d, %v), want (3, true)", id, ok)
	}
}

// TestReadyOrderSurvivesShuffledInsertion exercises the FIFO ready queue
// under randomized insertion order.
func TestReadyOrderSurvivesShuffledInsertion(t *testing.T) {
	ids := []uint32{1, 3, 5, 7, 9, 11, 13}
	shuffled := append([]uint32(nil), ids...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	p := NewPriorityManager()
	for _, id := range shuffled {
		p.Add(id)
	}

	for _, want := range shuffled {
		got, ok := p.Next()
		if !ok || got != want {
			t.Fatalf("Next() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}
