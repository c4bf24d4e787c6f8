package namespace

import (
	"fmt"
	"time"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/internal/util"
	"github.com/google/uuid"
)

type created struct {
	node Node
	req  *nstree.NodeRequest
}

type pendingLink struct {
	parent *Directory
	req    *nstree.NodeRequest
}

// AddNodes creates the requested forest under parent (or as roots when parent
// is nil) and returns the top-level nodes in request order.
//
// Directories and files are created first, then links, so a link may refer
// to any node of the batch or any node already in the tree by UUID. Writable
// flags are applied last so read-only directories can still be populated.
// Either every node is created or, on error, none is and parent keeps its
// modification time.
func (t *Tree) AddNodes(parent *Directory, reqs []*nstree.NodeRequest) ([]Node, error) {
	logger := util.GetLogger("Tree.AddNodes")

	t.mu.Lock()
	defer t.mu.Unlock()

	var parentModified time.Time
	if parent != nil {
		parentModified = parent.modified
	}
	var all []created
	var links []pendingLink
	top := make([]Node, len(reqs))

	var build func(parent *Directory, reqs []*nstree.NodeRequest, out []Node) error
	build = func(parent *Directory, reqs []*nstree.NodeRequest, out []Node) error {
		for i, req := range reqs {
			if req == nil {
				return fmt.Errorf("add nodes: %w: nil request", nstree.ErrIllegalArgument)
			}
			switch req.Type {
			case nstree.DirNodeType:
				d, err := t.newDirectoryLocked(parent, req.Name, true, req.UUID)
				if err != nil {
					return err
				}
				all = append(all, created{d, req})
				if out != nil {
					out[i] = d
				}
				if err := build(d, req.Children, nil); err != nil {
					return err
				}
			case nstree.FileNodeType:
				f, err := t.newFileLocked(parent, req.Name, req.FileType, req.Size, true, req.UUID)
				if err != nil {
					return err
				}
				all = append(all, created{f, req})
				if out != nil {
					out[i] = f
				}
			case nstree.LinkNodeType:
				links = append(links, pendingLink{parent, req})
			default:
				return fmt.Errorf("add nodes %q: %w: unknown node type %q", req.Name, nstree.ErrIllegalArgument, req.Type)
			}
		}
		return nil
	}

	rollback := func(err error) ([]Node, error) {
		for i := len(all) - 1; i >= 0; i-- {
			c := all[i].node.core()
			if err := c.terminateLocked(); err != nil {
				invariantBreach(err, "failed to roll back created node")
			}
			t.nodes.Delete(c.id)
			t.uuids.Delete(c.uuid)
		}
		if parent != nil {
			parent.modified = parentModified
		}
		logger.Debug().Err(err).Int("count", len(all)).Msg("Rolled back node batch")
		return nil, err
	}

	if err := build(parent, reqs, top); err != nil {
		return rollback(err)
	}

	// Links may refer to other links of the batch, so resolve in rounds until
	// no further link can be created.
	for len(links) > 0 {
		var pending []pendingLink
		for _, l := range links {
			target, ok := t.lookupUUIDLocked(l.req.Target)
			if !ok {
				pending = append(pending, l)
				continue
			}
			link, err := t.newLinkLocked(l.parent, l.req.Name, target, l.req.UUID)
			if err != nil {
				return rollback(err)
			}
			all = append(all, created{link, l.req})
			for i, req := range reqs {
				if req == l.req {
					top[i] = link
				}
			}
		}
		if len(pending) == len(links) {
			return rollback(fmt.Errorf("add link %q: %w: target %s not found", pending[0].req.Name, nstree.ErrIllegalArgument, pending[0].req.Target))
		}
		links = pending
	}

	for _, c := range all {
		if c.req.Writable {
			continue
		}
		switch n := c.node.(type) {
		case *Directory:
			n.writable = false
		case *File:
			n.writable = false
		}
	}
	logger.Debug().Int("count", len(all)).Msg("Added nodes")
	return top, nil
}

func (t *Tree) lookupUUIDLocked(u uuid.UUID) (Node, bool) {
	if u == uuid.Nil {
		return nil, false
	}
	id, ok := t.uuids.Load(u)
	if !ok {
		return nil, false
	}
	return t.nodes.Load(id)
}
