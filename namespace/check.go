package namespace

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvariant is wrapped by every violation reported by Check.
var ErrInvariant = errors.New("invariant violated")

// Check verifies the structural invariants of every node held by the tree
// and returns all violations joined, or nil when the tree is consistent.
func (t *Tree) Check() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	var errs []error
	report := func(n Node, format string, args ...any) {
		c := n.core()
		msg := fmt.Sprintf(format, args...)
		errs = append(errs, fmt.Errorf("%w: node %d %q: %s", ErrInvariant, c.id, c.name, msg))
	}

	t.nodes.Range(func(id uint64, n Node) bool {
		c := n.core()
		if c.id != id {
			report(n, "stored under id %d", id)
		}
		if !n.validName(c.name) {
			report(n, "invalid name for a %s", n.Type())
		}
		if c.created.After(now) {
			report(n, "created in the future")
		}
		if !c.modified.IsZero() && (c.modified.Before(c.created) || c.modified.After(now)) {
			report(n, "modification time outside [creation, now]")
		}
		if c.terminated && c.parent != 0 {
			report(n, "terminated but attached")
		}
		if c.parent != 0 {
			t.checkParentLocked(n, report)
		}
		if d, ok := n.(*Directory); ok {
			t.checkChildrenLocked(d, report)
		}
		return true
	})
	return errors.Join(errs...)
}

func (t *Tree) checkParentLocked(n Node, report func(Node, string, ...any)) {
	c := n.core()
	pn, ok := t.nodes.Load(c.parent)
	if !ok {
		report(n, "parent %d missing from arena", c.parent)
		return
	}
	parent, ok := pn.(*Directory)
	if !ok {
		report(n, "parent %d is a %s", c.parent, pn.Type())
		return
	}
	if !slices.Contains(parent.children, c.id) {
		report(n, "not listed by its parent %q", parent.name)
	}
	// a chain longer than the arena can only be a cycle
	steps, limit := 0, t.nodes.Size()
	for p := c.parent; p != 0; steps++ {
		if p == c.id || steps > limit {
			report(n, "is its own ancestor")
			return
		}
		next, ok := t.nodes.Load(p)
		if !ok {
			return
		}
		p = next.core().parent
	}
}

func (t *Tree) checkChildrenLocked(d *Directory, report func(Node, string, ...any)) {
	if d.terminated && len(d.children) > 0 {
		report(d, "terminated with %d children", len(d.children))
	}
	var prev Node
	for i, id := range d.children {
		child, ok := t.nodes.Load(id)
		if !ok {
			report(d, "child %d at %d missing from arena", id, i+1)
			continue
		}
		if child.core().parent != d.id {
			report(d, "child %q at %d has parent %d", child.core().name, i+1, child.core().parent)
		}
		if prev != nil && compareNames(prev.core().name, child.core().name) >= 0 {
			report(d, "children %q and %q out of order", prev.core().name, child.core().name)
		}
		prev = child
	}
}
