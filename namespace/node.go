package namespace

import (
	"fmt"
	"strings"
	"time"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/internal/util"
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Named is the naming capability shared by every node kind.
type Named interface {
	Name() string
	IsValidName(name string) bool
	CanAcceptAsNewName(name string) bool
	ChangeName(name string) error
}

// Parented is the capability of being placed under a Directory.
type Parented interface {
	Parent() *Directory
	IsRoot() bool
	Root() Node
	Move(target *Directory) error
	MakeRoot() error
}

// Terminable is the lifecycle capability: Root/Attached -> Terminated.
type Terminable interface {
	IsTerminated() bool
	CanBeTerminated() bool
	Terminate() error
}

// Node is an entry of a namespace Tree. The set of implementations is closed:
// *Directory, *File and *Link.
type Node interface {
	nstree.NodeInfo
	Named
	Parented
	Terminable

	UUID() uuid.UUID
	Type() nstree.NodeType
	CreationTime() time.Time
	// ModificationTime returns false until the node is modified for the first time
	ModificationTime() (time.Time, bool)
	IsOrderedBefore(name string) bool
	IsOrderedAfter(name string) bool
	IsOrderedBeforeNode(other Node) bool
	IsOrderedAfterNode(other Node) bool
	IsDirectOrIndirectParentOf(other Node) bool
	HasOverlappingUsePeriod(other Node) bool
	// TotalDiskUsage is the sum of file sizes at or below the node
	TotalDiskUsage() int64
	Attr() fuse.Attr

	core() *item
	validName(name string) bool
	canBeTerminatedLocked() bool
}

// Writable is implemented by the node kinds that carry a writable flag
// gating their structural mutation.
type Writable interface {
	Node
	IsWritable() bool
	SetWritable(writable bool) error

	isWritableLocked() bool
}

// item holds the state common to every node kind. All fields are guarded by
// the owning tree's mu.
type item struct {
	tree       *Tree
	self       Node
	id         uint64
	uuid       uuid.UUID
	name       string
	created    time.Time
	modified   time.Time // zero until first modification
	parent     uint64    // 0 for roots
	terminated bool
}

func newItem(t *Tree, id uint64, uid uuid.UUID, name string) item {
	return item{
		tree:    t,
		id:      id,
		uuid:    uid,
		name:    name,
		created: t.clock.Now(),
	}
}

// NodeID returns the arena ID of the node (immutable)
func (it *item) NodeID() uint64 {
	return it.id
}

// UUID returns the node's stable identity (immutable)
func (it *item) UUID() uuid.UUID {
	return it.uuid
}

// Name returns the node's current name.
func (it *item) Name() string {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.name
}

func (it *item) CreationTime() time.Time {
	return it.created
}

func (it *item) ModificationTime() (time.Time, bool) {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.modified, !it.modified.IsZero()
}

func (it *item) IsTerminated() bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.terminated
}

func (it *item) IsRoot() bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.isRootLocked()
}

func (it *item) isRootLocked() bool {
	return it.parent == 0
}

// Parent returns the directory the node is attached to; nil for roots
func (it *item) Parent() *Directory {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.parentLocked()
}

func (it *item) parentLocked() *Directory {
	if it.parent == 0 {
		return nil
	}
	return it.tree.dirLocked(it.parent)
}

// Root returns the root the node directly or indirectly belongs to;
// a root node returns itself.
func (it *item) Root() Node {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	cur := it
	for cur.parent != 0 {
		cur = &it.tree.dirLocked(cur.parent).item
	}
	return cur.self
}

// touchLocked stamps the modification time, never before the creation time.
func (it *item) touchLocked() {
	now := it.tree.clock.Now()
	if now.Before(it.created) {
		now = it.created
	}
	it.modified = now
}

// parentWritableLocked reports whether a structural change may detach the
// node from its parent; roots have nothing to detach from.
func (it *item) parentWritableLocked() bool {
	return it.parent == 0 || it.parentLocked().writable
}

func (it *item) canBeTerminatedLocked() bool {
	return !it.terminated && it.parentWritableLocked()
}

// CanBeTerminated reports whether Terminate would succeed.
func (it *item) CanBeTerminated() bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.self.canBeTerminatedLocked()
}

// CanAcceptAsNewName reports whether ChangeName(name) would rename the node:
// it must be live, the name valid for its kind and different from the current
// one, and no sibling may carry it (case-insensitive).
func (it *item) CanAcceptAsNewName(name string) bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.canAcceptAsNewNameLocked(name)
}

func (it *item) canAcceptAsNewNameLocked(name string) bool {
	if it.terminated || !it.self.validName(name) || it.name == name {
		return false
	}
	if w, ok := it.self.(Writable); ok && !w.isWritableLocked() {
		return false
	}
	return it.parent == 0 || !it.parentLocked().containsNamedLocked(name)
}

// ChangeName renames the node. A terminated node fails with
// [nstree.ErrTerminated]. A writable-capable node that is not writable, or
// that is attached under a non-writable directory, fails with a
// [nstree.NotWritableError]. Any other name that cannot be accepted leaves
// the node untouched without an error.
func (it *item) ChangeName(name string) error {
	it.tree.mu.Lock()
	defer it.tree.mu.Unlock()
	return it.changeNameLocked(name)
}

func (it *item) changeNameLocked(name string) error {
	logger := util.GetLogger("Node.ChangeName")

	if it.terminated {
		return fmt.Errorf("rename %q: %w", it.name, nstree.ErrTerminated)
	}
	if err := it.checkWritableLocked(); err != nil {
		return err
	}
	parent := it.parentLocked()
	if err := it.checkParentWritableLocked(); err != nil {
		return err
	}
	if !it.canAcceptAsNewNameLocked(name) {
		logger.Debug().Str("name", it.name).Str("newName", name).Msg("Name not accepted; ignoring rename")
		return nil
	}

	old := it.name
	it.name = name
	it.touchLocked()
	if parent != nil {
		idx, err := parent.indexOfLocked(it.self)
		if err != nil {
			invariantBreach(err, "renamed node missing from its parent")
		}
		if err := parent.restoreOrderAfterRenameLocked(idx); err != nil {
			invariantBreach(err, "failed to restore order after rename")
		}
	}
	logger.Trace().Str("old", old).Str("new", name).Uint64("id", it.id).Msg("Renamed node")
	return nil
}

// checkWritableLocked fails when the node has a writable flag that is unset
func (it *item) checkWritableLocked() error {
	if w, ok := it.self.(Writable); ok && !w.isWritableLocked() {
		return nstree.NewNotWritableError(it.self, it.name)
	}
	return nil
}

// checkParentWritableLocked fails when a writable-capable node is attached
// under a non-writable directory. Links carry no writable flag and are not
// held to their parent's.
func (it *item) checkParentWritableLocked() error {
	if _, ok := it.self.(Writable); !ok {
		return nil
	}
	if parent := it.parentLocked(); parent != nil && !parent.writable {
		return nstree.NewNotWritableError(parent, parent.name)
	}
	return nil
}

// IsOrderedBefore reports whether the node's name sorts strictly before name,
// ignoring case. An empty name is absent and never ordered.
func (it *item) IsOrderedBefore(name string) bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return name != "" && compareNames(it.name, name) < 0
}

// IsOrderedAfter reports whether the node's name sorts strictly after name,
// ignoring case. An empty name is absent and never ordered.
func (it *item) IsOrderedAfter(name string) bool {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return name != "" && compareNames(it.name, name) > 0
}

func (it *item) IsOrderedBeforeNode(other Node) bool {
	if isAbsent(other) {
		return false
	}
	return it.IsOrderedBefore(other.Name())
}

func (it *item) IsOrderedAfterNode(other Node) bool {
	if isAbsent(other) {
		return false
	}
	return it.IsOrderedAfter(other.Name())
}

// IsDirectOrIndirectParentOf reports whether the node appears in the
// ancestor chain of other.
func (it *item) IsDirectOrIndirectParentOf(other Node) bool {
	if isAbsent(other) || other.core().tree != it.tree {
		return false
	}
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.isAncestorOfLocked(other.core())
}

func (it *item) isAncestorOfLocked(other *item) bool {
	for p := other.parent; p != 0; {
		if p == it.id {
			return true
		}
		p = it.tree.dirLocked(p).parent
	}
	return false
}

// Move detaches the node from its current parent (if any) and attaches it
// under target. Validation happens before anything changes, so a failed
// move leaves the tree as it was.
func (it *item) Move(target *Directory) error {
	it.tree.mu.Lock()
	defer it.tree.mu.Unlock()
	return it.moveLocked(target)
}

func (it *item) moveLocked(target *Directory) error {
	logger := util.GetLogger("Node.Move")

	if it.terminated {
		return fmt.Errorf("move %q: %w", it.name, nstree.ErrTerminated)
	}
	if target == nil {
		return fmt.Errorf("move %q: %w: no target", it.name, nstree.ErrIllegalMove)
	}
	if target.tree != it.tree {
		return fmt.Errorf("move %q: %w: target belongs to another tree", it.name, nstree.ErrIllegalMove)
	}
	if it.parent == target.id {
		return fmt.Errorf("move %q: %w: already in %q", it.name, nstree.ErrIllegalMove, target.name)
	}
	if err := it.checkWritableLocked(); err != nil {
		return err
	}
	if err := it.checkParentWritableLocked(); err != nil {
		return err
	}
	_, writableKind := it.self.(Writable)
	if writableKind && !target.writable {
		return nstree.NewNotWritableError(target, target.name)
	}
	parent := it.parentLocked()
	if target.id == it.id || it.isAncestorOfLocked(&target.item) {
		return fmt.Errorf("move %q into %q: %w: %w", it.name, target.name, nstree.ErrIllegalMove, nstree.ErrCyclicParentage)
	}
	if !target.canHaveAsChildLocked(it.self) {
		return fmt.Errorf("move %q into %q: %w", it.name, target.name, nstree.ErrIllegalMove)
	}

	if parent != nil {
		if err := parent.removeLocked(it.self); err != nil {
			invariantBreach(err, "failed to detach validated node")
		}
	}
	if err := target.insertLocked(it.self); err != nil {
		invariantBreach(err, "failed to attach validated node")
	}
	it.touchLocked()
	logger.Trace().Str("name", it.name).Str("target", target.name).Msg("Moved node")
	return nil
}

// MakeRoot detaches the node from its parent. It is a no-op for roots.
func (it *item) MakeRoot() error {
	it.tree.mu.Lock()
	defer it.tree.mu.Unlock()
	return it.makeRootLocked()
}

func (it *item) makeRootLocked() error {
	if it.terminated {
		return fmt.Errorf("make root %q: %w", it.name, nstree.ErrTerminated)
	}
	parent := it.parentLocked()
	if parent == nil {
		return nil
	}
	if !parent.writable {
		return nstree.NewNotWritableError(parent, parent.name)
	}
	if err := it.checkWritableLocked(); err != nil {
		return err
	}
	if err := parent.removeLocked(it.self); err != nil {
		invariantBreach(err, "failed to detach node from its parent")
	}
	it.touchLocked()
	return nil
}

// Terminate detaches the node and moves it into the absorbing terminated
// state. Terminating a terminated node does nothing.
func (it *item) Terminate() error {
	it.tree.mu.Lock()
	defer it.tree.mu.Unlock()
	return it.terminateLocked()
}

func (it *item) terminateLocked() error {
	if it.terminated {
		return nil
	}
	if !it.self.canBeTerminatedLocked() {
		return fmt.Errorf("terminate %q: %w", it.name, nstree.ErrCannotTerminate)
	}
	if it.parent != 0 {
		if err := it.makeRootLocked(); err != nil {
			invariantBreach(err, "failed to detach terminable node")
		}
	}
	it.terminated = true
	logger := util.GetLogger("Node.Terminate")
	logger.Trace().Str("name", it.name).Uint64("id", it.id).Msg("Terminated node")
	return nil
}

// AbsolutePath renders the names from the node's root down to the node,
// i.e. /Alpha/Bravo/file1.txt. Files carry the extension of their type.
func (it *item) AbsolutePath() string {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	return it.pathLocked()
}

func (it *item) pathLocked() string {
	segs := []string{it.displayNameLocked()}
	for p := it.parent; p != 0; {
		d := it.tree.dirLocked(p)
		segs = append(segs, d.name)
		p = d.parent
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

func (it *item) displayNameLocked() string {
	if f, ok := it.self.(*File); ok {
		if ext := f.fileType.Extension(); ext != "" {
			return it.name + "." + ext
		}
	}
	return it.name
}

// HasOverlappingUsePeriod reports whether the open periods between creation
// and last modification of both nodes overlap. It is false when either node
// was never modified.
func (it *item) HasOverlappingUsePeriod(other Node) bool {
	if isAbsent(other) {
		return false
	}
	otherCreated := other.CreationTime()
	otherModified, ok := other.ModificationTime()
	if !ok {
		return false
	}
	modified, ok := it.ModificationTime()
	if !ok {
		return false
	}
	return !(it.created.Before(otherCreated) && modified.Before(otherCreated)) &&
		!(otherCreated.Before(it.created) && otherModified.Before(it.created))
}

// isAbsent reports whether n is nil or a typed nil node
func isAbsent(n Node) bool {
	return n == nil || n.core() == nil
}

// invariantBreach aborts on a condition validation has already ruled out.
func invariantBreach(err error, msg string) {
	logger := util.GetLogger("namespace")
	logger.Panic().Err(err).Msg("invariant breach: " + msg)
}
