package namespace

import (
	"github.com/brettbedarf/nstree"
)

// Link names another node of the same tree without owning it. The target is
// never told about the link; staleness is only visible through IsValid.
type Link struct {
	item
	target uint64
}

func (l *Link) core() *item {
	if l == nil {
		return nil
	}
	return &l.item
}

func (l *Link) Type() nstree.NodeType {
	return nstree.LinkNodeType
}

// IsValidName reports whether name may name a link; links forbid dots.
func (l *Link) IsValidName(name string) bool {
	return l.validName(name)
}

func (l *Link) validName(name string) bool {
	return IsValidLinkName(name)
}

// Target returns the referenced node, or nil once it has been forgotten by
// the tree.
func (l *Link) Target() Node {
	n, ok := l.tree.nodes.Load(l.target)
	if !ok {
		return nil
	}
	return n
}

// IsValid reports whether the target is still live.
func (l *Link) IsValid() bool {
	l.tree.mu.RLock()
	defer l.tree.mu.RUnlock()
	n, ok := l.tree.nodes.Load(l.target)
	return ok && !n.core().terminated
}

// TotalDiskUsage is always zero; the target is accounted for where it lives.
func (l *Link) TotalDiskUsage() int64 {
	return 0
}
