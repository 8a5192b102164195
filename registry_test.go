package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_ForNameUnknownIsEmpty(t *testing.T) {
	r := newRegistry()
	info := r.forName("nope")
	assert.True(t, info.isEmpty())
}

func TestRegistry_TryReplaceCASSemantics(t *testing.T) {
	r := newRegistry()
	empty := r.forName("x")

	f := &Frame{name: "x"}
	next := &registryInfo{frame: f}
	assert.True(t, r.tryReplace("x", empty, next))

	// A second attempt using the stale `empty` expectation must fail: the
	// slot has already moved on.
	assert.False(t, r.tryReplace("x", empty, &registryInfo{frame: f}))

	// Using the current value as the expectation succeeds.
	newer := &registryInfo{frame: f, connectors: map[string]channelBinding{"c": {}}}
	assert.True(t, r.tryReplace("x", next, newer))
}

func TestRegistry_TryReleaseClearsFrameAndOwnBindings(t *testing.T) {
	r := newRegistry()
	f := &Frame{name: "y"}
	empty := r.forName("y")
	bound := &registryInfo{frame: f, connectors: map[string]channelBinding{
		"internal": {channel: &Channel{Name: "internal"}},
	}}
	a := assert.New(t)
	a.True(r.tryReplace("y", empty, bound))

	// tryRelease actively drops the frame and its own (non-pending)
	// connector bindings - it does not wait for the Info to have already
	// gone empty, since nothing else ever clears the frame field.
	a.True(r.tryRelease("y"))

	info := r.forName("y")
	a.True(info.isEmpty())
}

func TestRegistry_TryReleasePreservesPendingListeners(t *testing.T) {
	r := newRegistry()
	f := &Frame{name: "z"}
	empty := r.forName("z")
	waiter := make(chan *Channel, 1)
	bound := &registryInfo{frame: f, connectors: map[string]channelBinding{
		"opened":  {channel: &Channel{Name: "opened"}},
		"pending": {listeners: []chan *Channel{waiter}},
	}}
	a := assert.New(t)
	a.True(r.tryReplace("z", empty, bound))

	a.True(r.tryRelease("z"))

	info := r.forName("z")
	a.Nil(info.frame)
	_, hasOpened := info.connectors["opened"]
	a.False(hasOpened)
	pending, hasPending := info.connectors["pending"]
	a.True(hasPending)
	a.True(pending.isPending())
}

func TestRegistryInfo_WithBindingCopyOnWrite(t *testing.T) {
	base := &registryInfo{connectors: map[string]channelBinding{"a": {}}}
	next := base.withBinding("b", channelBinding{})

	_, hasB := base.connectors["b"]
	assert.False(t, hasB, "withBinding must not mutate the receiver")
	_, hasBNext := next.connectors["b"]
	assert.True(t, hasBNext)
	assert.Len(t, base.connectors, 1)
	assert.Len(t, next.connectors, 2)
}

func TestRegistryInfo_WithoutConnector(t *testing.T) {
	base := &registryInfo{connectors: map[string]channelBinding{"a": {}, "b": {}}}
	next := base.withoutConnector("a")

	assert.Len(t, base.connectors, 2)
	assert.Len(t, next.connectors, 1)
	_, ok := next.connectors["a"]
	assert.False(t, ok)
}
