package fusefs

import (
	"expvar"
	"fmt"
	"sync"

	"github.com/OMGeeky/drive-syncer/id"
)

var (
	numOpenInodes = expvar.NewInt("numOpenInodes")
	lastInode     = expvar.NewInt("lastInode")
)

const rootInode uint64 = 1

// InodeMap is the ino ↔ id bijection the adapter owns (spec.md §3 Id ↔
// inode bijection). It is a pure translation layer: the id table and
// graph the provider maintains are the only authoritative state, and
// InodeMap exists solely because the kernel addresses nodes by a
// uint64 inode number it expects to stay stable for the node's
// lifetime, not by our opaque string ids.
type InodeMap struct {
	mu        sync.RWMutex
	toId      map[uint64]id.Id
	toInode   map[id.Id]uint64
	lastInode uint64
}

// NewInodeMap returns an InodeMap with inode 1 already bound to rootId.
func NewInodeMap(rootId id.Id) *InodeMap {
	numOpenInodes.Set(1)
	lastInode.Set(1)
	return &InodeMap{
		toId:      map[uint64]id.Id{rootInode: rootId},
		toInode:   map[id.Id]uint64{rootId: rootInode},
		lastInode: rootInode,
	}
}

// RootInode is the fixed inode number of the filesystem root.
func (im *InodeMap) RootInode() uint64 { return rootInode }

// FromId returns the inode allocated for objId, allocating a new one on
// first sight.
func (im *InodeMap) FromId(objId id.Id) uint64 {
	im.mu.RLock()
	if ino, ok := im.toInode[objId]; ok {
		im.mu.RUnlock()
		return ino
	}
	im.mu.RUnlock()

	im.mu.Lock()
	defer im.mu.Unlock()
	if ino, ok := im.toInode[objId]; ok {
		return ino
	}
	im.lastInode++
	ino := im.lastInode
	im.toId[ino] = objId
	im.toInode[objId] = ino
	numOpenInodes.Set(int64(len(im.toId)))
	lastInode.Set(int64(im.lastInode))
	return ino
}

// ToId returns the id bound to ino, or an error if ino was never
// allocated (or has since been released).
func (im *InodeMap) ToId(ino uint64) (id.Id, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if objId, ok := im.toId[ino]; ok {
		return objId, nil
	}
	return "", fmt.Errorf("inode %d not allocated", ino)
}

// Release drops the binding for ino, once the kernel has forgotten the
// node (bazil.org/fuse's Forget request).
func (im *InodeMap) Release(ino uint64) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if objId, ok := im.toId[ino]; ok {
		delete(im.toInode, objId)
	}
	delete(im.toId, ino)
	numOpenInodes.Set(int64(len(im.toId)))
}
