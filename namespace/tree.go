package namespace

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/config"
	"github.com/brettbedarf/nstree/internal/util"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// Clock is the time source used to stamp creation and modification times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Tree
type Option func(*Tree)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(t *Tree) {
		t.clock = c
	}
}

// Tree is the arena every node of a namespace lives in. Nodes reference
// their parent, children and link targets by NodeID; the arena owns them.
//
// A single RWMutex guards every node of the tree: mutating calls hold it
// exclusively for their whole duration and read-only calls share it.
// Methods named *Locked expect the caller to hold it.
type Tree struct {
	cfg    *config.Config
	clock  Clock
	mu     sync.RWMutex
	lastID atomic.Uint64                 // Last NodeID assigned; IDs start at 1 so 0 means "none"
	nodes  *xsync.Map[uint64, Node]      // arena of all nodes by NodeID
	uuids  *xsync.Map[uuid.UUID, uint64] // NodeID by UUID
}

// NewTree creates an empty Tree. A nil cfg uses the defaults; any other cfg
// must pass [config.Validate] since its DefaultName replaces invalid names.
func NewTree(cfg *config.Config, opts ...Option) (*Tree, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("new tree: %w", err)
	}
	t := &Tree{
		cfg:   cfg,
		clock: systemClock{},
		nodes: xsync.NewMap[uint64, Node](),
		uuids: xsync.NewMap[uuid.UUID, uint64](),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Len returns the number of nodes held by the arena, terminated ones included
func (t *Tree) Len() int {
	return t.nodes.Size()
}

// Get returns the node registered under id
func (t *Tree) Get(id uint64) (Node, bool) {
	return t.nodes.Load(id)
}

// GetByUUID returns the node carrying the given UUID
func (t *Tree) GetByUUID(u uuid.UUID) (Node, bool) {
	id, ok := t.uuids.Load(u)
	if !ok {
		return nil, false
	}
	return t.nodes.Load(id)
}

// Roots returns the live root nodes in canonical order.
func (t *Tree) Roots() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	roots := make([]Node, 0)
	t.nodes.Range(func(_ uint64, n Node) bool {
		if c := n.core(); c.parent == 0 && !c.terminated {
			roots = append(roots, n)
		}
		return true
	})
	slices.SortFunc(roots, func(a, b Node) int {
		if c := compareNames(a.core().name, b.core().name); c != 0 {
			return c
		}
		return cmp.Compare(a.core().id, b.core().id)
	})
	return roots
}

// Forget evicts a terminated node from the arena. Links that still refer to
// it become invalid and report a nil Target.
func (t *Tree) Forget(n Node) error {
	logger := util.GetLogger("Tree.Forget")

	if isAbsent(n) || n.core().tree != t {
		return fmt.Errorf("forget: %w: node does not belong to this tree", nstree.ErrIllegalArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	c := n.core()
	if !c.terminated {
		return fmt.Errorf("forget %q: %w: node is not terminated", c.name, nstree.ErrInvalidState)
	}
	t.nodes.Delete(c.id)
	t.uuids.Delete(c.uuid)
	logger.Trace().Uint64("id", c.id).Str("name", c.name).Msg("Forgot node")
	return nil
}

// NewDirectory creates a directory under parent, or a root directory when
// parent is nil. An invalid name is replaced by the configured default name.
func (t *Tree) NewDirectory(parent *Directory, name string, writable bool) (*Directory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.newDirectoryLocked(parent, name, writable, uuid.Nil)
}

// NewFile creates a file under parent, or a root file when parent is nil.
// An empty fileType defaults to text.
func (t *Tree) NewFile(parent *Directory, name string, fileType nstree.FileType, size int64, writable bool) (*File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.newFileLocked(parent, name, fileType, size, writable, uuid.Nil)
}

// NewLink creates a link to target under parent, or a root link when parent
// is nil. The target must be a live node of the same tree.
func (t *Tree) NewLink(parent *Directory, name string, target Node) (*Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.newLinkLocked(parent, name, target, uuid.Nil)
}

func (t *Tree) newDirectoryLocked(parent *Directory, name string, writable bool, uid uuid.UUID) (*Directory, error) {
	if !IsValidDirectoryName(name) {
		name = t.cfg.DefaultName
	}
	d := &Directory{writable: writable}
	if err := t.registerLocked(d, &d.item, parent, name, uid); err != nil {
		return nil, err
	}
	return d, nil
}

func (t *Tree) newFileLocked(parent *Directory, name string, fileType nstree.FileType, size int64, writable bool, uid uuid.UUID) (*File, error) {
	if fileType == "" {
		fileType = nstree.TextFileType
	}
	if !fileType.IsValid() {
		return nil, fmt.Errorf("new file %q: %w: unknown file type %q", name, nstree.ErrIllegalArgument, fileType)
	}
	if !t.isValidSize(size) {
		return nil, fmt.Errorf("new file %q: %w: size %d outside [0, %d]", name, nstree.ErrIllegalArgument, size, t.cfg.MaxFileSize)
	}
	if !IsValidNodeName(name) {
		name = t.cfg.DefaultName
	}
	f := &File{writable: writable, size: size, fileType: fileType}
	if err := t.registerLocked(f, &f.item, parent, name, uid); err != nil {
		return nil, err
	}
	return f, nil
}

func (t *Tree) newLinkLocked(parent *Directory, name string, target Node, uid uuid.UUID) (*Link, error) {
	if isAbsent(target) || target.core().tree != t {
		return nil, fmt.Errorf("new link %q: %w: target must be a node of this tree", name, nstree.ErrIllegalArgument)
	}
	if target.core().terminated {
		return nil, fmt.Errorf("new link %q: %w", name, nstree.ErrTargetTerminated)
	}
	if !IsValidLinkName(name) {
		name = t.cfg.DefaultName
	}
	l := &Link{target: target.core().id}
	if err := t.registerLocked(l, &l.item, parent, name, uid); err != nil {
		return nil, err
	}
	return l, nil
}

// registerLocked validates placement under parent, then initializes the
// common state of n, stores it in the arena and attaches it.
func (t *Tree) registerLocked(n Node, it *item, parent *Directory, name string, uid uuid.UUID) error {
	logger := util.GetLogger("Tree.Register")

	if parent != nil {
		if parent.tree != t {
			return fmt.Errorf("new node %q: %w: parent belongs to another tree", name, nstree.ErrIllegalArgument)
		}
		if parent.terminated {
			return fmt.Errorf("new node %q under %q: %w: parent is terminated", name, parent.name, nstree.ErrIllegalArgument)
		}
		if !parent.writable {
			return nstree.NewNotWritableError(parent, parent.name)
		}
		if parent.containsNamedLocked(name) {
			return fmt.Errorf("new node %q under %q: %w", name, parent.name, nstree.ErrDuplicateName)
		}
	}
	if uid == uuid.Nil {
		uid = uuid.New()
	} else if _, taken := t.uuids.Load(uid); taken {
		return fmt.Errorf("new node %q: %w: uuid %s already in use", name, nstree.ErrIllegalArgument, uid)
	}

	*it = newItem(t, t.lastID.Add(1), uid, name)
	it.self = n
	t.nodes.Store(it.id, n)
	t.uuids.Store(uid, it.id)

	if parent != nil {
		if err := parent.insertLocked(n); err != nil {
			invariantBreach(err, "failed to attach validated new node")
		}
	}
	logger.Trace().Uint64("id", it.id).Str("name", name).Str("type", string(n.Type())).Msg("Created node")
	return nil
}

func (t *Tree) isValidSize(size int64) bool {
	return size >= 0 && size <= t.cfg.MaxFileSize
}

// dirLocked resolves a parent reference. Parent references always point at
// live directories of the arena; anything else is an invariant breach.
func (t *Tree) dirLocked(id uint64) *Directory {
	n, ok := t.nodes.Load(id)
	if !ok {
		invariantBreach(fmt.Errorf("node %d not in arena", id), "dangling parent reference")
	}
	d, ok := n.(*Directory)
	if !ok {
		invariantBreach(fmt.Errorf("node %d is a %s", id, n.Type()), "parent reference to a non-directory")
	}
	return d
}

// nodeLocked resolves a child reference; see dirLocked.
func (t *Tree) nodeLocked(id uint64) Node {
	n, ok := t.nodes.Load(id)
	if !ok {
		invariantBreach(fmt.Errorf("node %d not in arena", id), "dangling child reference")
	}
	return n
}
