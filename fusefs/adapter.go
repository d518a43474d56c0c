// Package fusefs is the FUSE Adapter: the multi-threaded translation
// layer between bazil.org/fuse kernel requests and the single-tasked
// provider.Provider. Every request is turned into a provider.Request,
// submitted, and the calling goroutine blocks on its reply channel; the
// adapter itself holds no authoritative state beyond the inode
// bijection.
package fusefs

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fuseutil"

	"github.com/OMGeeky/drive-syncer/provider"
	"github.com/OMGeeky/drive-syncer/providererr"
)

var kernelRefresh = flag.Duration("kernel-refresh", 2*time.Second, "How long the kernel should cache metadata entries.")

const blockSize uint32 = 4096

// Server holds the state of one mounted fuse connection.
type Server struct {
	p      *provider.Provider
	inode  *InodeMap
	uid    uint32
	gid    uint32
	conn   *fuse.Conn
	cancel context.CancelFunc
}

// New returns a Server ready to serve requests arriving on conn once
// Provider.Run is also running. cancel is invoked when the kernel sends
// a destroy upcall (unmount), so the provider's Run loop stops along
// with the connection.
func New(p *provider.Provider, conn *fuse.Conn, cancel context.CancelFunc) (*Server, error) {
	uid, gid, err := CurrentUidGid()
	if err != nil {
		return nil, err
	}
	return &Server{
		p:      p,
		inode:  NewInodeMap(p.RootId()),
		conn:   conn,
		uid:    uid,
		gid:    gid,
		cancel: cancel,
	}, nil
}

// Serve receives and dispatches Requests from the kernel. Unlike a
// single-tasked dispatcher, each request is handled on its own
// goroutine: ordering and mutual exclusion over the filesystem's state
// are already the provider task's job, so the adapter has nothing to
// lose by letting the kernel's requests run concurrently here.
func (sc *Server) Serve() error {
	for {
		req, err := sc.conn.ReadRequest()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		fuse.Debug(fmt.Sprintf("%+v", req))
		go sc.serve(req)
	}
	return nil
}

func (sc *Server) serve(req fuse.Request) {
	switch req := req.(type) {
	default:
		fuse.Debug(fmt.Sprintf("ENOSYS: %+v", req))
		req.RespondError(fuse.ENOSYS)

	case *fuse.InitRequest:
		req.Respond(&fuse.InitResponse{
			MaxWrite: 128 * 1024,
			Flags:    fuse.InitBigWrites | fuse.InitAsyncRead,
		})

	case *fuse.StatfsRequest:
		sc.statfs(req)

	case *fuse.GetattrRequest:
		sc.getattr(req)

	case *fuse.LookupRequest:
		sc.lookup(req)

	case *fuse.ForgetRequest:
		sc.inode.Release(uint64(req.Header.Node))
		req.Respond()

	case *fuse.OpenRequest:
		sc.open(req)

	case *fuse.SetattrRequest:
		sc.setattr(req)

	case *fuse.ReadRequest:
		if req.Dir {
			sc.readDir(req)
		} else {
			sc.read(req)
		}

	case *fuse.AccessRequest:
		req.Respond()

	case *fuse.RemoveRequest:
		req.RespondError(fuse.ENOSYS)

	case *fuse.RenameRequest:
		sc.rename(req)

	case *fuse.WriteRequest:
		sc.write(req)

	case *fuse.FlushRequest:
		req.Respond()

	case *fuse.ReleaseRequest:
		sc.release(req)

	case *fuse.DestroyRequest:
		sc.cancel()
		req.Respond()
	}
}

// errnoFor maps a providererr sentinel to the fuse.Errno the kernel
// expects back (spec.md §7).
func errnoFor(err error) fuse.Errno {
	switch err {
	case providererr.ErrNotFound:
		return fuse.ENOENT
	case providererr.ErrNotDir:
		return fuse.Errno(syscall.ENOTDIR)
	case providererr.ErrExists:
		return fuse.Errno(syscall.EADDRINUSE)
	case providererr.ErrNotSupported:
		return fuse.ENOSYS
	case providererr.ErrRemoteIO:
		return fuse.Errno(syscall.EREMOTEIO)
	case providererr.ErrInvalid:
		return fuse.Errno(syscall.EINVAL)
	default:
		return fuse.EIO
	}
}

func attrFromAttr(a provider.Attr, ino uint64) fuse.Attr {
	attr := fuse.Attr{
		Inode:  ino,
		Uid:    a.Uid,
		Gid:    a.Gid,
		Mode:   a.Perm,
		Nlink:  1,
		Size:   a.Size,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Crtime,
	}
	if a.Dir {
		attr.Mode |= os.ModeDir
		attr.Nlink = 2
	}
	blocks := a.Size / uint64(blockSize)
	if a.Size%uint64(blockSize) > 0 {
		blocks++
	}
	attr.Blocks = blocks
	return attr
}

func (sc *Server) statfs(req *fuse.StatfsRequest) {
	reply := make(chan provider.StatfsResult, 1)
	sc.p.Submit(&provider.StatfsRequest{Reply: reply})
	res := <-reply
	req.Respond(&fuse.StatfsResponse{Files: res.NumEntries, Bsize: blockSize})
}

func (sc *Server) getattr(req *fuse.GetattrRequest) {
	objId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	reply := make(chan provider.GetAttrResult, 1)
	sc.p.Submit(&provider.GetAttrRequest{Id: objId, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond(&fuse.GetattrResponse{Attr: attrFromAttr(res.Attr, uint64(req.Header.Node))})
}

func (sc *Server) lookup(req *fuse.LookupRequest) {
	parentId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	reply := make(chan provider.LookupResult, 1)
	sc.p.Submit(&provider.LookupRequest{Parent: parentId, Name: req.Name, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	ino := sc.inode.FromId(res.Attr.Id)
	resp := &fuse.LookupResponse{
		Node:       fuse.NodeID(ino),
		EntryValid: *kernelRefresh,
		Attr:       attrFromAttr(res.Attr, ino),
	}
	req.Respond(resp)
}

func (sc *Server) setattr(req *fuse.SetattrRequest) {
	objId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	var changes provider.SetAttrChanges
	if req.Valid.Size() {
		size := req.Size
		changes.Size = &size
	}
	if req.Valid.Mtime() {
		mtime := req.Mtime
		changes.Mtime = &mtime
	}
	if req.Valid.Atime() {
		atime := req.Atime
		changes.Atime = &atime
	}
	if req.Valid.Mode() {
		mode := req.Mode
		changes.Mode = &mode
	}
	reply := make(chan provider.SetAttrResult, 1)
	sc.p.Submit(&provider.SetAttrRequest{Id: objId, Changes: changes, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond(&fuse.SetattrResponse{Attr: attrFromAttr(res.Attr, uint64(req.Header.Node))})
}

func (sc *Server) open(req *fuse.OpenRequest) {
	objId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	reply := make(chan provider.OpenResult, 1)
	sc.p.Submit(&provider.OpenRequest{Id: objId, Flags: uint32(req.Flags), Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond(&fuse.OpenResponse{Handle: fuse.HandleID(res.Fh)})
}

func (sc *Server) read(req *fuse.ReadRequest) {
	reply := make(chan provider.ReadResult, 1)
	sc.p.Submit(&provider.ReadRequest{Fh: uint64(req.Handle), Offset: req.Offset, Size: req.Size, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond(&fuse.ReadResponse{Data: res.Data})
}

func (sc *Server) readDir(req *fuse.ReadRequest) {
	objId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	reply := make(chan provider.ReadDirResult, 1)
	sc.p.Submit(&provider.ReadDirRequest{Id: objId, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	var data []byte
	for _, de := range res.Entries {
		childType := fuse.DT_File
		if de.Dir {
			childType = fuse.DT_Dir
		}
		ci := sc.inode.FromId(de.Id)
		data = fuse.AppendDirent(data, fuse.Dirent{Inode: ci, Name: de.Name, Type: childType})
	}
	resp := &fuse.ReadResponse{Data: make([]byte, 0, req.Size)}
	fuseutil.HandleRead(req, resp, data)
	req.Respond(resp)
}

func (sc *Server) write(req *fuse.WriteRequest) {
	reply := make(chan provider.WriteResult, 1)
	sc.p.Submit(&provider.WriteRequest{Fh: uint64(req.Handle), Offset: req.Offset, Data: req.Data, Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond(&fuse.WriteResponse{Size: res.N})
}

func (sc *Server) release(req *fuse.ReleaseRequest) {
	reply := make(chan provider.ReleaseResult, 1)
	sc.p.Submit(&provider.ReleaseRequest{Fh: uint64(req.Handle), Reply: reply})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond()
}

func (sc *Server) rename(req *fuse.RenameRequest) {
	oldParentId, err := sc.inode.ToId(uint64(req.Header.Node))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	newParentId, err := sc.inode.ToId(uint64(req.NewDir))
	if err != nil {
		req.RespondError(fuse.ESTALE)
		return
	}
	reply := make(chan provider.RenameResult, 1)
	sc.p.Submit(&provider.RenameRequest{
		OldParent: oldParentId, OldName: req.OldName,
		NewParent: newParentId, NewName: req.NewName,
		Reply: reply,
	})
	res := <-reply
	if res.Err != nil {
		req.RespondError(errnoFor(res.Err))
		return
	}
	req.Respond()
}

// CurrentUidGid returns the uid/gid of the user who mounted the
// filesystem, for callers (the adapter itself, and cmd/drivesyncer) that
// need it for attribute responses.
func CurrentUidGid() (uint32, uint32, error) {
	userCurrent, err := user.Current()
	if err != nil {
		return 0, 0, err
	}
	uidInt, err := strconv.Atoi(userCurrent.Uid)
	if err != nil {
		return 0, 0, err
	}
	gidInt, err := strconv.Atoi(userCurrent.Gid)
	if err != nil {
		return 0, 0, err
	}
	return uint32(uidInt), uint32(gidInt), nil
}
