package nstree

import "github.com/google/uuid"

// NodeRequest describes a node to be created. It should be passed from
// entrypoints (i.e. cli, fixture files) to the namespace Tree.AddNodes method.
type NodeRequest struct {
	Name     string
	Type     NodeType
	UUID     uuid.UUID // Identity assigned to the created node; uuid.Nil lets the tree generate one
	Writable bool
	// File only
	Size     int64
	FileType FileType
	// Link only: UUID of the node the link refers to
	Target uuid.UUID
	// Dir only
	Children []*NodeRequest
}

// IsLink reports whether the request creates a link
func (r *NodeRequest) IsLink() bool {
	return r.Type == LinkNodeType
}
