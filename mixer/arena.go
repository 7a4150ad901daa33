// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// ID is a process-unique mixer identifier, minted from Arena.NewID.
// Parent/child links are stored as ID values rather than pointers so a
// mixer removed from the tree (and therefore no longer reachable from
// the root) can still be looked up by any handle that outlived it,
// resolving to errs.NotFound instead of a dangling pointer.
type ID uint64

// Arena is the shared registry every live Mixer is stored in, keyed by
// ID (§4.8 "weak references into an arena"). A Player owns exactly one
// Arena; it is safe for concurrent use from the audio thread (lookups
// only) and control threads (insert/remove).
type Arena struct {
	mixers  *xsync.MapOf[ID, *Mixer]
	nextID  atomic.Uint64
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{mixers: xsync.NewMapOf[ID, *Mixer]()}
}

// NewID mints a fresh, never-reused ID.
func (a *Arena) NewID() ID {
	return ID(a.nextID.Add(1))
}

// Register stores m under its ID, making it visible to Lookup.
func (a *Arena) Register(m *Mixer) {
	a.mixers.Store(m.id, m)
}

// Unregister removes id from the arena (used when a mixer is torn
// down); subsequent Lookups for id report not-found.
func (a *Arena) Unregister(id ID) {
	a.mixers.Delete(id)
}

// Lookup resolves id to its live Mixer, if any.
func (a *Arena) Lookup(id ID) (*Mixer, bool) {
	return a.mixers.Load(id)
}

// isAncestor reports whether candidate is id itself or one of its
// ancestors, walking parent links through the arena. Used by
// AddChildMixer to reject cycles (§8; TestMixer_AddChildMixerCycleRejected).
func (a *Arena) isAncestor(id, candidate ID) bool {
	for cur, ok := a.Lookup(id); ok; cur, ok = a.Lookup(cur.parent) {
		if cur.id == candidate {
			return true
		}
		if cur.parent == 0 {
			return false
		}
	}
	return false
}
