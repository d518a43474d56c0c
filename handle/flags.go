// Package handle decodes POSIX open flags once at open time (spec.md
// §4.4) and owns the per-open File Handle table the File Provider
// mutates (spec.md §3 Handle table).
package handle

import "golang.org/x/sys/unix"

// Flags is the compact decoded view of the POSIX flag word a kernel open
// request carries. It is computed once, at open, and never re-derived.
type Flags struct {
	ReadOnly  bool
	ReadWrite bool
	WriteOnly bool
	Append    bool
	NonBlock  bool
	Dsync     bool
	Rsync     bool
	Sync      bool
}

// ParseFlags decodes a raw POSIX open(2) flag word into Flags.
func ParseFlags(raw uint32) Flags {
	accessMode := raw & unix.O_ACCMODE
	return Flags{
		ReadOnly:  accessMode == unix.O_RDONLY,
		ReadWrite: accessMode == unix.O_RDWR,
		WriteOnly: accessMode == unix.O_WRONLY,
		Append:    raw&unix.O_APPEND != 0,
		NonBlock:  raw&unix.O_NONBLOCK != 0,
		Dsync:     raw&unix.O_DSYNC != 0,
		Rsync:     raw&unix.O_RSYNC != 0,
		Sync:      raw&unix.O_SYNC != 0,
	}
}

// CanRead reports whether this handle may be used to read content.
func (f Flags) CanRead() bool { return f.ReadOnly || f.ReadWrite }

// CanWrite reports whether this handle may be used to write content.
func (f Flags) CanWrite() bool { return f.WriteOnly || f.ReadWrite }
