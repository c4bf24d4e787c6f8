package namespace

import (
	"os"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

const blockSize = 4096

// newAttrLocked returns the attributes shared by every node kind.
// NOTE: callers set Mode, Size and Nlink
func (it *item) newAttrLocked() fuse.Attr {
	mtime := it.created
	if !it.modified.IsZero() {
		mtime = it.modified
	}
	return fuse.Attr{
		Ino: it.id,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     uint64(mtime.Unix()),
		Mtime:     uint64(mtime.Unix()),
		Ctime:     uint64(it.created.Unix()),
		Atimensec: uint32(mtime.Nanosecond()),
		Mtimensec: uint32(mtime.Nanosecond()),
		Ctimensec: uint32(it.created.Nanosecond()),
		Blksize:   blockSize,
	}
}

func permBits(writable bool, rw, ro uint32) uint32 {
	if writable {
		return rw
	}
	return ro
}

func blocks(size int64) uint64 {
	// st_blocks counts 512-byte units
	return uint64((size + 511) / 512)
}

// Attr returns a stat view of the directory. Nlink follows the usual
// convention of 2 plus one per subdirectory.
func (d *Directory) Attr() fuse.Attr {
	d.tree.mu.RLock()
	defer d.tree.mu.RUnlock()

	attr := d.newAttrLocked()
	attr.Mode = uint32(syscall.S_IFDIR) | permBits(d.writable, 0o755, 0o555)
	attr.Size = blockSize
	attr.Blocks = blocks(blockSize)
	attr.Nlink = 2
	for _, id := range d.children {
		if _, ok := d.tree.nodeLocked(id).(*Directory); ok {
			attr.Nlink++
		}
	}
	return attr
}

func (f *File) Attr() fuse.Attr {
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()

	attr := f.newAttrLocked()
	attr.Mode = uint32(syscall.S_IFREG) | permBits(f.writable, 0o644, 0o444)
	attr.Size = uint64(f.size)
	attr.Blocks = blocks(f.size)
	attr.Nlink = 1
	return attr
}

// Attr reports a symlink whose size is the length of the target's path, or
// zero once the target has been forgotten.
func (l *Link) Attr() fuse.Attr {
	l.tree.mu.RLock()
	defer l.tree.mu.RUnlock()

	attr := l.newAttrLocked()
	attr.Mode = uint32(syscall.S_IFLNK) | 0o777
	if target, ok := l.tree.nodes.Load(l.target); ok {
		attr.Size = uint64(len(target.core().pathLocked()))
	}
	attr.Nlink = 1
	return attr
}

// AttrTime converts a seconds/nanoseconds pair of a fuse.Attr back to a time.
func AttrTime(sec uint64, nsec uint32) time.Time {
	return time.Unix(int64(sec), int64(nsec))
}
