// Package id defines the opaque remote object identifier used throughout
// drive-syncer, and the root-sentinel rewriting rule that keeps the
// distinguished "root" alias out of the entry table.
package id

// Id identifies a remote Drive object. It is opaque and stable across
// renames; it is never recomputed locally.
type Id string

// Sentinel is the kernel-facing alias for the mount's root directory. The
// adapter and provider both see this value in incoming requests; it must
// never be stored in the entry table, the parents map, or the children
// map. See Resolve.
const Sentinel Id = "root"

// Empty reports whether the id is the zero value.
func (i Id) Empty() bool { return i == "" }

func (i Id) String() string { return string(i) }

// Resolver rewrites Sentinel to the real id of the Drive root, discovered
// once at startup. Every provider entry point calls Resolve before using
// an incoming id, so the entry table itself never contains Sentinel.
type Resolver struct {
	altRootId Id
}

// NewResolver returns a Resolver that maps Sentinel to altRootId.
func NewResolver(altRootId Id) Resolver {
	return Resolver{altRootId: altRootId}
}

// Resolve rewrites the root sentinel to the real root id. All other ids
// pass through unchanged.
func (r Resolver) Resolve(i Id) Id {
	if i == Sentinel {
		return r.altRootId
	}
	return i
}

// AltRootId returns the real id substituted for Sentinel.
func (r Resolver) AltRootId() Id { return r.altRootId }
