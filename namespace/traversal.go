package namespace

import "iter"

// Traversal walks a snapshot of a directory's children taken when it was
// created. It is restartable with Reset and does not observe later changes
// to the directory. A Traversal is not safe for concurrent use.
type Traversal struct {
	nodes []Node
	next  int // 0-based cursor into nodes
}

// Traversal returns a fresh traversal over the current children.
func (d *Directory) Traversal() *Traversal {
	return &Traversal{nodes: d.Children()}
}

func (tr *Traversal) Len() int {
	return len(tr.nodes)
}

func (tr *Traversal) HasNext() bool {
	return tr.next < len(tr.nodes)
}

// Next returns the next child, or false when the traversal is exhausted.
func (tr *Traversal) Next() (Node, bool) {
	if !tr.HasNext() {
		return nil, false
	}
	n := tr.nodes[tr.next]
	tr.next++
	return n, true
}

// Reset rewinds the traversal to the first child
func (tr *Traversal) Reset() {
	tr.next = 0
}

// All yields every child with its 1-based position, independent of the cursor.
func (tr *Traversal) All() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		for i, n := range tr.nodes {
			if !yield(i+1, n) {
				return
			}
		}
	}
}
