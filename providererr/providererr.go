// Package providererr defines the sentinel errors the File Provider
// returns to the FUSE Adapter. The adapter maps each one to a
// bazil.org/fuse errno at the kernel boundary (fusefs/adapter.go); the
// provider itself never imports bazil.org/fuse.
package providererr

import "errors"

var (
	// ErrNotFound covers an unknown inode, an unknown id, or a lookup
	// miss. Maps to fuse.ENOENT.
	ErrNotFound = errors.New("no such entry")

	// ErrNotDir is returned for a readdir request against an entry that
	// is not a directory. Maps to fuse.ENOTDIR.
	ErrNotDir = errors.New("not a directory")

	// ErrIO covers channel send/receive failure, local cache I/O
	// failure, and background task failure surfaced synchronously.
	// Maps to fuse.EIO.
	ErrIO = errors.New("i/o error")

	// ErrExists is returned when a rename target already exists in the
	// destination directory. Maps to fuse.Errno(unix.EADDRINUSE), reused
	// for namespace collision per the errno table.
	ErrExists = errors.New("destination already exists")

	// ErrNotSupported is returned for operations this revision does not
	// implement. Maps to fuse.ENOSYS.
	ErrNotSupported = errors.New("operation not supported")

	// ErrRemoteIO covers a failed remote metadata update. Maps to
	// fuse.Errno(unix.EREMOTEIO).
	ErrRemoteIO = errors.New("remote metadata update failed")

	// ErrInvalid covers invalid arguments from conversions, such as a
	// name that is not valid UTF-8. Maps to fuse.EINVAL.
	ErrInvalid = errors.New("invalid argument")
)
