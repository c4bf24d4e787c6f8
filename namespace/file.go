package namespace

import (
	"fmt"

	"github.com/brettbedarf/nstree"
)

// File is a writable leaf carrying a size and a type. The type decides the
// extension shown in paths; it is not part of the name.
type File struct {
	item
	writable bool
	size     int64
	fileType nstree.FileType
}

var _ Writable = (*File)(nil)

func (f *File) core() *item {
	if f == nil {
		return nil
	}
	return &f.item
}

func (f *File) Type() nstree.NodeType {
	return nstree.FileNodeType
}

func (f *File) IsValidName(name string) bool {
	return f.validName(name)
}

func (f *File) validName(name string) bool {
	return IsValidNodeName(name)
}

func (f *File) IsWritable() bool {
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.writable
}

func (f *File) isWritableLocked() bool {
	return f.writable
}

func (f *File) SetWritable(writable bool) error {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	if f.terminated {
		return fmt.Errorf("set writable %q: %w", f.name, nstree.ErrTerminated)
	}
	f.writable = writable
	return nil
}

func (f *File) canBeTerminatedLocked() bool {
	return f.item.canBeTerminatedLocked() && f.writable
}

func (f *File) Size() int64 {
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.size
}

// FileType is immutable
func (f *File) FileType() nstree.FileType {
	return f.fileType
}

// Resize sets the size of the file and stamps its modification time.
func (f *File) Resize(size int64) error {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()

	if f.terminated {
		return fmt.Errorf("resize %q: %w", f.name, nstree.ErrTerminated)
	}
	if !f.writable {
		return nstree.NewNotWritableError(f, f.name)
	}
	if !f.tree.isValidSize(size) {
		return fmt.Errorf("resize %q: %w: size %d outside [0, %d]", f.name, nstree.ErrIllegalArgument, size, f.tree.cfg.MaxFileSize)
	}
	f.size = size
	f.touchLocked()
	return nil
}

func (f *File) TotalDiskUsage() int64 {
	return f.Size()
}
