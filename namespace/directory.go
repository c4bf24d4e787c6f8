package namespace

import (
	"fmt"
	"slices"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/internal/util"
)

// ChildContainer is the capability of owning an ordered set of children.
// Positions are 1-based.
type ChildContainer interface {
	ChildCount() int
	ChildAt(index int) (Node, error)
	HasChild(n Node) bool
	IndexOf(n Node) (int, error)
	ContainsNamed(name string) bool
	Lookup(name string) (Node, bool)
	CanHaveAsChild(n Node) bool
	CanHaveAsChildAt(n Node, index int) bool
	Children() []Node
	Traversal() *Traversal
}

// Directory is a writable node owning children sorted by name, ignoring
// case, with no two children sharing a name.
//
// Membership only changes through node creation, Move, MakeRoot, Terminate
// and ChangeName; there is no public insert.
type Directory struct {
	item
	writable bool
	children []uint64 // NodeIDs in canonical order
}

var (
	_ Writable       = (*Directory)(nil)
	_ ChildContainer = (*Directory)(nil)
)

func (d *Directory) core() *item {
	if d == nil {
		return nil
	}
	return &d.item
}

func (d *Directory) Type() nstree.NodeType {
	return nstree.DirNodeType
}

// IsValidName reports whether name may name a directory
func (d *Directory) IsValidName(name string) bool {
	return d.validName(name)
}

func (d *Directory) validName(name string) bool {
	return IsValidDirectoryName(name)
}

func (d *Directory) IsWritable() bool {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.writable
}

func (d *Directory) isWritableLocked() bool {
	return d.writable
}

// SetWritable toggles the writable flag; terminated directories refuse it.
func (d *Directory) SetWritable(writable bool) error {
	d.tree.mu.Lock()
	defer d.tree.mu.Unlock()
	if d.terminated {
		return fmt.Errorf("set writable %q: %w", d.name, nstree.ErrTerminated)
	}
	d.writable = writable
	return nil
}

// canBeTerminatedLocked additionally requires the directory to be writable and empty
func (d *Directory) canBeTerminatedLocked() bool {
	return d.item.canBeTerminatedLocked() && d.writable && len(d.children) == 0
}

func (d *Directory) ChildCount() int {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return len(d.children)
}

// ChildAt returns the child at the 1-based index.
func (d *Directory) ChildAt(index int) (Node, error) {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	if index < 1 || index > len(d.children) {
		return nil, &nstree.IndexError{Index: index, Count: len(d.children)}
	}
	return d.childLocked(index), nil
}

// childLocked expects a validated 1-based index
func (d *Directory) childLocked(index int) Node {
	return d.tree.nodeLocked(d.children[index-1])
}

// Children returns a snapshot of the children in canonical order
func (d *Directory) Children() []Node {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.childrenLocked()
}

func (d *Directory) childrenLocked() []Node {
	children := make([]Node, 0, len(d.children))
	for _, id := range d.children {
		children = append(children, d.tree.nodeLocked(id))
	}
	return children
}

// HasChild reports whether n is a child of the directory (identity, not name).
func (d *Directory) HasChild(n Node) bool {
	if isAbsent(n) {
		return false
	}
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.hasChildLocked(n)
}

func (d *Directory) hasChildLocked(n Node) bool {
	c := n.core()
	return c.tree == d.tree && slices.Contains(d.children, c.id)
}

// IndexOf returns the 1-based position of n.
func (d *Directory) IndexOf(n Node) (int, error) {
	if isAbsent(n) {
		return 0, fmt.Errorf("index of: %w: no node", nstree.ErrIllegalArgument)
	}
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.indexOfLocked(n)
}

func (d *Directory) indexOfLocked(n Node) (int, error) {
	c := n.core()
	if c.tree == d.tree {
		if i := slices.Index(d.children, c.id); i >= 0 {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("index of %q in %q: %w: not a child", c.name, d.name, nstree.ErrIllegalArgument)
}

// ContainsNamed reports whether a child carries name, ignoring case.
func (d *Directory) ContainsNamed(name string) bool {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.containsNamedLocked(name)
}

func (d *Directory) containsNamedLocked(name string) bool {
	for _, id := range d.children {
		if sameName(d.tree.nodeLocked(id).core().name, name) {
			return true
		}
	}
	return false
}

// Lookup finds the child carrying name, ignoring case, by binary search over
// the sorted children.
func (d *Directory) Lookup(name string) (Node, bool) {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.lookupLocked(name)
}

func (d *Directory) lookupLocked(name string) (Node, bool) {
	if name == "" {
		return nil, false
	}
	low, high := 1, len(d.children)
	for low <= high {
		mid := low + (high-low)/2
		child := d.childLocked(mid)
		switch c := compareNames(child.core().name, name); {
		case c == 0:
			return child, true
		case c > 0:
			high = mid - 1
		default:
			low = mid + 1
		}
	}
	return nil, false
}

// CanHaveAsChild reports whether n may be a child of the directory. Both
// must be live nodes of the same tree, n may not be the directory or one of
// its ancestors, and n's name must be unique among the children. A node that
// is not yet a child must also be free to leave its current parent: it is a
// root or its parent is writable.
func (d *Directory) CanHaveAsChild(n Node) bool {
	if isAbsent(n) {
		return false
	}
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.canHaveAsChildLocked(n)
}

func (d *Directory) canHaveAsChildLocked(n Node) bool {
	c := n.core()
	if c.tree != d.tree || c.terminated || d.terminated {
		return false
	}
	if c.id == d.id || c.isAncestorOfLocked(&d.item) {
		return false
	}
	if d.hasChildLocked(n) {
		count := 0
		for _, id := range d.children {
			if sameName(d.tree.nodeLocked(id).core().name, c.name) {
				count++
			}
		}
		return count == 1
	}
	return !d.containsNamedLocked(c.name) && c.parentWritableLocked()
}

// CanHaveAsChildAt refines CanHaveAsChild with position: n must sort after
// its left neighbour and before its right neighbour at the 1-based index.
// For a node that is already a child the index ranges over [1, count],
// otherwise over [1, count+1].
func (d *Directory) CanHaveAsChildAt(n Node, index int) bool {
	if isAbsent(n) {
		return false
	}
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.canHaveAsChildAtLocked(n, index)
}

func (d *Directory) canHaveAsChildAtLocked(n Node, index int) bool {
	if !d.canHaveAsChildLocked(n) {
		return false
	}
	name := n.core().name
	count := len(d.children)
	before := func(i int) bool { return compareNames(d.childLocked(i).core().name, name) < 0 }
	after := func(i int) bool { return compareNames(d.childLocked(i).core().name, name) > 0 }

	if d.hasChildLocked(n) {
		if index < 1 || index > count {
			return false
		}
		return (index == 1 || before(index-1)) && (index == count || after(index+1))
	}
	if index < 1 || index > count+1 {
		return false
	}
	return (index == 1 || before(index-1)) && (index == count+1 || after(index))
}

// insertLocked attaches n at its canonical position and sets its parent.
func (d *Directory) insertLocked(n Node) error {
	c := n.core()
	if d.hasChildLocked(n) || !d.canHaveAsChildLocked(n) {
		return fmt.Errorf("insert %q into %q: %w", c.name, d.name, nstree.ErrIllegalArgument)
	}
	index := 1
	for index <= len(d.children) && compareNames(d.childLocked(index).core().name, c.name) < 0 {
		index++
	}
	if !d.canHaveAsChildAtLocked(n, index) {
		invariantBreach(fmt.Errorf("index %d for %q", index, c.name), "computed insertion index breaks ordering")
	}
	d.children = slices.Insert(d.children, index-1, c.id)
	c.parent = d.id
	d.touchLocked()
	return nil
}

// removeLocked detaches n and clears its parent.
func (d *Directory) removeLocked(n Node) error {
	index, err := d.indexOfLocked(n)
	if err != nil {
		return err
	}
	d.children = slices.Delete(d.children, index-1, index)
	n.core().parent = 0
	d.touchLocked()
	return nil
}

// restoreOrderAfterRenameLocked repositions the child at index, the only one
// that may be out of order after its name changed.
func (d *Directory) restoreOrderAfterRenameLocked(index int) error {
	if index < 1 || index > len(d.children) {
		return &nstree.IndexError{Index: index, Count: len(d.children)}
	}
	child := d.childLocked(index)
	d.children = slices.Delete(d.children, index-1, index)
	child.core().parent = 0
	if err := d.insertLocked(child); err != nil {
		invariantBreach(err, "failed to reinsert renamed child")
	}
	return nil
}

// IsDirectOrIndirectSubdirectoryOf reports whether other is an ancestor of d.
func (d *Directory) IsDirectOrIndirectSubdirectoryOf(other *Directory) (bool, error) {
	if other == nil {
		return false, fmt.Errorf("subdirectory of: %w: no directory", nstree.ErrIllegalArgument)
	}
	return other.IsDirectOrIndirectParentOf(d), nil
}

// TotalDiskUsage sums the sizes of every file below the directory.
func (d *Directory) TotalDiskUsage() int64 {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()
	return d.diskUsageLocked()
}

func (d *Directory) diskUsageLocked() int64 {
	var total int64
	for _, id := range d.children {
		switch child := d.tree.nodeLocked(id).(type) {
		case *File:
			total += child.size
		case *Directory:
			total += child.diskUsageLocked()
		}
	}
	return total
}

// DeleteRecursive terminates the directory and everything below it. Nothing
// is terminated unless every node can be: all directories and files in the
// subtree must be writable, as must the directory's own parent.
func (d *Directory) DeleteRecursive() error {
	logger := util.GetLogger("Directory.DeleteRecursive")

	d.tree.mu.Lock()
	defer d.tree.mu.Unlock()

	if d.terminated {
		return fmt.Errorf("delete %q: %w", d.name, nstree.ErrTerminated)
	}
	if parent := d.parentLocked(); parent != nil && !parent.writable {
		return nstree.NewNotWritableError(parent, parent.name)
	}
	order := d.postOrderLocked(nil)
	for _, n := range order {
		if err := n.core().checkWritableLocked(); err != nil {
			return err
		}
	}
	for _, n := range order {
		if err := n.core().terminateLocked(); err != nil {
			invariantBreach(err, "failed to terminate validated subtree")
		}
	}
	logger.Debug().Str("name", d.name).Int("count", len(order)).Msg("Deleted directory tree")
	return nil
}

// postOrderLocked appends the subtree rooted at d, children before parents.
func (d *Directory) postOrderLocked(acc []Node) []Node {
	for _, id := range d.children {
		child := d.tree.nodeLocked(id)
		if sub, ok := child.(*Directory); ok {
			acc = sub.postOrderLocked(acc)
		} else {
			acc = append(acc, child)
		}
	}
	return append(acc, d)
}
