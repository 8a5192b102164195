package reactor

import "sync/atomic"

// channelBinding is the tagged variant spec.md §9 recommends for a
// registry slot's per-name value: either a bound Channel, or a list of
// listeners waiting for a Channel that does not exist yet (a subscription
// to a future openConnector call under that name).
type channelBinding struct {
	channel   *Channel
	listeners []chan *Channel
}

func (b channelBinding) isPending() bool { return b.channel == nil }

// registryInfo is the immutable snapshot a registry slot holds: the Frame
// that owns the name, plus its connector-name -> channelBinding map. A nil
// *registryInfo (or one with a nil Frame and no connectors) represents the
// "empty" sentinel spec.md §4.1 describes.
type registryInfo struct {
	frame      *Frame
	connectors map[string]channelBinding
}

func (info *registryInfo) isEmpty() bool {
	return info == nil || (info.frame == nil && len(info.connectors) == 0)
}

// withBinding returns a copy of info with name bound to binding, without
// mutating info (registryInfo values are treated as immutable so that a
// stale reader's pointer comparison in tryReplace remains meaningful).
func (info *registryInfo) withBinding(name string, binding channelBinding) *registryInfo {
	next := &registryInfo{frame: info.frame, connectors: make(map[string]channelBinding, len(info.connectors)+1)}
	for k, v := range info.connectors {
		next.connectors[k] = v
	}
	next.connectors[name] = binding
	return next
}

func (info *registryInfo) withoutConnector(name string) *registryInfo {
	if info == nil {
		return nil
	}
	next := &registryInfo{frame: info.frame, connectors: make(map[string]channelBinding, len(info.connectors))}
	for k, v := range info.connectors {
		if k != name {
			next.connectors[k] = v
		}
	}
	return next
}

// emptyRegistryInfo is the sentinel returned by forName for an unregistered
// name.
var emptyRegistryInfo = &registryInfo{}

// registry is the process-wide (per-System) name -> Info map, supporting
// CAS replace and a release that retries its CAS until it wins, per
// spec.md §4.1.
//
// Each name gets its own *atomic.Pointer[registryInfo] slot. The slots map
// itself is guarded by mu, which every slot lookup, creation and deletion
// takes briefly - so readers do take mu to find a slot. The Info inside a
// slot is then read with an atomic load and replaced by CAS without holding
// mu; writers retry on CAS failure. This is the same "CAS loop over an
// atomic pointer" idiom as the teacher's FastState, generalized from a
// single global pointer to a map of them.
type registry struct {
	mu    chanMutex
	slots map[string]*atomic.Pointer[registryInfo]
}

// chanMutex is a tiny channel-based mutex, used only to guard the
// registry's slots map (lookup, creation, deletion), not the per-slot CAS. A plain
// sync.Mutex would do as well; this keeps with the pack's preference for
// explicit, inspectable primitives over bare zero-value locks scattered
// through a struct.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}
	return c
}

func (m chanMutex) Lock()   { <-m }
func (m chanMutex) Unlock() { m <- struct{}{} }

func newRegistry() *registry {
	return &registry{
		mu:    newChanMutex(),
		slots: make(map[string]*atomic.Pointer[registryInfo]),
	}
}

// forName returns the current Info for name, or emptyRegistryInfo if no
// slot has ever been created for it.
func (r *registry) forName(name string) *registryInfo {
	r.mu.Lock()
	slot, ok := r.slots[name]
	r.mu.Unlock()
	if !ok {
		return emptyRegistryInfo
	}
	if info := slot.Load(); info != nil {
		return info
	}
	return emptyRegistryInfo
}

// slotFor returns the slot for name, creating it (initialized to the empty
// Info) if absent.
func (r *registry) slotFor(name string) *atomic.Pointer[registryInfo] {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[name]
	if !ok {
		slot = &atomic.Pointer[registryInfo]{}
		slot.Store(emptyRegistryInfo)
		r.slots[name] = slot
	}
	return slot
}

// tryReplace CAS's the slot for name from expected to next. Fails if
// another mutator already swapped the slot.
func (r *registry) tryReplace(name string, expected, next *registryInfo) bool {
	slot := r.slotFor(name)
	if expected == nil {
		expected = emptyRegistryInfo
	}
	return slot.CompareAndSwap(expected, next)
}

// tryRelease actively clears name's frame ownership and that frame's own
// connector bindings on termination - it does not wait for the Info to have
// organically become empty, since the frame field set by Spawn is never
// cleared anywhere else. Any still-pending bindings (a WaitForChannel
// subscriber waiting on a name that was never opened) are preserved, so a
// future Frame spawned under the reused name can still satisfy them, per
// spec.md §4.1. The slot itself is deleted from the map only once this
// leaves it with neither a frame nor any bindings at all. CAS retries
// against concurrent OpenConnector/WaitForChannel mutators until it wins, so
// invariant 2 ("the registry entry for name is released (eventually)")
// always holds.
func (r *registry) tryRelease(name string) bool {
	for {
		r.mu.Lock()
		slot, ok := r.slots[name]
		r.mu.Unlock()
		if !ok {
			return true
		}

		info := slot.Load()
		if info.isEmpty() {
			return true
		}

		next := &registryInfo{connectors: make(map[string]channelBinding, len(info.connectors))}
		for k, v := range info.connectors {
			if v.isPending() {
				next.connectors[k] = v
			}
		}

		if !slot.CompareAndSwap(info, next) {
			continue
		}

		if next.isEmpty() {
			r.mu.Lock()
			if cur, ok := r.slots[name]; ok && cur == slot && cur.Load().isEmpty() {
				delete(r.slots, name)
			}
			r.mu.Unlock()
		}
		return true
	}
}
