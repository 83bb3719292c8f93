package h2core

// priorityNode is one stream's position in the dependency tree.
type priorityNode struct {
	id       uint32
	parent   uint32
	hasRoot  bool // true once parent has been set explicitly (root streams have hasRoot=false, parent=0 implied)
	weight   uint8
	children map[uint32]struct{}

	// isExclusive and exclusiveChild record an exclusive reparent (RFC
	// 7540 §5.3.1) that remains in force after the call that set it: any
	// later insertion of a new direct child under this node is routed
	// under exclusiveChild instead, for as long as exclusiveChild itself
	// remains in the tree.
	isExclusive    bool
	exclusiveChild uint32
}

// PriorityManager owns the RFC 7540 §5.3 dependency tree: every stream is
// a node with a single parent (the connection root stream 0 if none was
// set explicitly), exclusive reparenting, and a FIFO ready queue over the
// root's direct children used to pick the next stream a single-threaded
// scheduler should serve. See DESIGN.md for how the cycle-avoidance and
// retirement-reparenting rules below were derived.
type PriorityManager struct {
	nodes map[uint32]*priorityNode
	ready []uint32
}

// NewPriorityManager returns an empty tree; stream 0 is the implicit root
// and is never itself tracked as a node.
func NewPriorityManager() *PriorityManager {
	return &PriorityManager{nodes: make(map[uint32]*priorityNode)}
}

func (p *PriorityManager) node(id uint32) *priorityNode {
	n := p.nodes[id]
	if n == nil {
		n = &priorityNode{id: id, weight: 15, children: make(map[uint32]struct{})}
		p.nodes[id] = n
	}
	return n
}

// Add registers id as a new root-level stream (dependent on stream 0),
// appending it to the ready queue. Called when a stream opens without an
// explicit PRIORITY frame.
func (p *PriorityManager) Add(id uint32) {
	if _, ok := p.nodes[id]; ok {
		return
	}
	p.node(id)
	p.ready = append(p.ready, id)
}

// AddWithDependency registers id as a new stream dependent on parent,
// used when a HEADERS frame carries priority fields at open time.
func (p *PriorityManager) AddWithDependency(id, parent uint32) {
	p.Add(id)
	p.SetDependency(id, parent)
}

// isDescendant reports whether candidate is in ancestor's subtree,
// walking parent pointers from candidate toward the root. Used by
// SetDependency/SetExclusive to detect the cycle a reparent would
// otherwise create.
func (p *PriorityManager) isDescendant(ancestor, candidate uint32) bool {
	seen := candidate
	for {
		n, ok := p.nodes[seen]
		if !ok || !n.hasRoot {
			return false
		}
		if n.parent == ancestor {
			return true
		}
		seen = n.parent
	}
}

// SetDependency reparents child under newParent (RFC 7540 §5.3.3). If
// newParent is currently a descendant of child, the dependency would
// create a cycle; per the RFC, newParent is first detached and moved to
// child's old parent (becoming root-level if child was), before child is
// attached under it. The cycle check walks newParent's parent pointers
// (isDescendant); nodes carry no depth field.
func (p *PriorityManager) SetDependency(child, newParent uint32) {
	if child == newParent {
		return
	}
	c := p.node(child)

	if p.isDescendant(child, newParent) {
		p.swapIntoChildsOldPosition(child, newParent)
	}

	p.detach(c)
	resolved := p.attach(newParent, child)
	c.parent = resolved
	c.hasRoot = resolved != 0
}

// swapIntoChildsOldPosition implements the cycle-avoidance step: newParent
// (a descendant of child) is moved to occupy the spot child currently
// holds — child's own parent — before the caller proceeds to reparent
// child under newParent.
func (p *PriorityManager) swapIntoChildsOldPosition(child, newParent uint32) {
	c := p.node(child)
	np := p.node(newParent)

	oldChildParent := c.parent
	oldChildHadRoot := c.hasRoot

	p.detach(np)
	if oldChildHadRoot {
		// Inserted directly rather than through attach: an exclusive
		// parent would route newParent under child itself.
		p.node(oldChildParent).children[newParent] = struct{}{}
		np.parent = oldChildParent
		np.hasRoot = true
	} else {
		np.hasRoot = false
		p.makeReady(newParent)
	}
}

// SetExclusive reparents child under newParent and additionally makes
// child the sole parent of every stream that was newParent's child
// before this call (RFC 7540 §5.3.1's exclusive flag). The exclusivity
// persists past this call: newParent remembers child as its exclusive
// child, and any direct child newParent is subsequently given is routed
// under child instead (see priorityNode.isExclusive).
func (p *PriorityManager) SetExclusive(child, newParent uint32) {
	np := p.node(newParent)
	np.isExclusive = false
	np.exclusiveChild = 0

	formerChildren := make([]uint32, 0, len(np.children))
	for id := range np.children {
		if id != child {
			formerChildren = append(formerChildren, id)
		}
	}

	p.SetDependency(child, newParent)

	for _, id := range formerChildren {
		n := p.node(id)
		p.detach(n)
		resolved := p.attach(child, id)
		n.parent = resolved
		n.hasRoot = true
	}

	np.isExclusive = true
	np.exclusiveChild = child
}

func (p *PriorityManager) detach(n *priorityNode) {
	if !n.hasRoot {
		p.removeReady(n.id)
		return
	}
	if parent, ok := p.nodes[n.parent]; ok {
		delete(parent.children, n.id)
	}
}

// attach inserts child under parent, following any chain of exclusive
// reparenting rooted at parent, and returns the parent id child actually
// ends up under.
func (p *PriorityManager) attach(parent, child uint32) uint32 {
	for {
		pn, ok := p.nodes[parent]
		if !ok || !pn.isExclusive || pn.exclusiveChild == child {
			break
		}
		if _, ok := p.nodes[pn.exclusiveChild]; !ok {
			break
		}
		parent = pn.exclusiveChild
	}
	if parent == 0 {
		p.makeReady(child)
		return 0
	}
	pn := p.node(parent)
	pn.children[child] = struct{}{}
	return parent
}

func (p *PriorityManager) makeReady(id uint32) {
	for _, existing := range p.ready {
		if existing == id {
			return
		}
	}
	p.ready = append(p.ready, id)
}

func (p *PriorityManager) removeReady(id uint32) {
	for i, existing := range p.ready {
		if existing == id {
			p.ready = append(p.ready[:i], p.ready[i+1:]...)
			return
		}
	}
}

// Retire removes id from the tree. Its children are reparented to id's
// former parent (root if none). When id itself was root-level, its
// children are appended to the ready queue in no defined order, since
// children are held in a set.
func (p *PriorityManager) Retire(id uint32) {
	n, ok := p.nodes[id]
	if !ok {
		return
	}
	children := make([]uint32, 0, len(n.children))
	for cid := range n.children {
		children = append(children, cid)
	}

	newParent := uint32(0)
	newParentHasRoot := false
	if n.hasRoot {
		newParent = n.parent
		newParentHasRoot = true
	}

	p.detach(n)
	delete(p.nodes, id)

	for _, cid := range children {
		cn := p.node(cid)
		resolved := p.attach(newParent, cid)
		cn.parent = resolved
		cn.hasRoot = newParentHasRoot || resolved != newParent
	}
}

// Next pops the front of the FIFO ready queue of root-level streams, the
// set a single-threaded scheduler may serve without waiting on a
// parent's completion. Returns ok=false when nothing is ready.
func (p *PriorityManager) Next() (id uint32, ok bool) {
	if len(p.ready) == 0 {
		return 0, false
	}
	id = p.ready[0]
	p.ready = p.ready[1:]
	return id, true
}

// Requeue appends id back to the end of the ready queue, used by a
// scheduler that served a stream but has more data pending for it.
func (p *PriorityManager) Requeue(id uint32) {
	if _, ok := p.nodes[id]; !ok {
		return
	}
	p.ready = append(p.ready, id)
}
