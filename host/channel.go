package host

import (
	"github.com/anvil-platform/forge/internal/funcid"
	"github.com/anvil-platform/forge/internal/semver"
)

// subscription is one registered implementation of a channel: a handler
// at a fixed version and priority.
type subscription struct {
	channel  string
	version  semver.Version
	priority int
	onError  func(error)
	fn       Handler
	id       funcid.ID
	seq      int
}

// decoration is one registered decorator: a middleware selected by a
// version range, or unconditionally when wildcard.
type decoration struct {
	channel  string
	wildcard bool
	scope    semver.Constraint
	priority int
	onError  func(error)
	fn       Middleware
	id       funcid.ID
	seq      int
}

// channelEntry holds the per-channel registrations. Subscribers and
// decorators are independent sets: the same function may appear in both.
type channelEntry struct {
	name        string
	subs        map[funcid.ID]*subscription
	decorations map[funcid.ID]*decoration
}

func (h *Host) entryFor(name string) *channelEntry {
	e, ok := h.channels[name]
	if !ok {
		e = &channelEntry{
			name:        name,
			subs:        make(map[funcid.ID]*subscription),
			decorations: make(map[funcid.ID]*decoration),
		}
		h.channels[name] = e
	}
	return e
}

func (h *Host) dropIfEmpty(e *channelEntry) {
	if len(e.subs) == 0 && len(e.decorations) == 0 {
		delete(h.channels, e.name)
	}
}

// Connect registers fn as a subscriber on channel. The channel name may
// carry a fixed version as "name@1.2.3"; an absent version defaults to
// 1.0.0, a range is rejected. Connecting an already-connected
// (channel, fn) pair is a silent no-op.
func (h *Host) Connect(channel string, fn Handler, cfg ...Config) error {
	if h.closed {
		return ErrHostClosed
	}
	base, version, err := parseFixed(channel)
	if err != nil {
		return err
	}
	c := firstConfig(cfg)
	id := h.ids.Identify(fn)
	e := h.entryFor(base)
	if _, ok := e.subs[id]; ok {
		h.dropIfEmpty(e)
		return nil
	}
	h.seq++
	e.subs[id] = &subscription{
		channel:  base,
		version:  version,
		priority: c.Priority,
		onError:  c.OnError,
		fn:       fn,
		id:       id,
		seq:      h.seq,
	}
	h.descriptorFor(id).subscribed[base] = struct{}{}
	h.log.V(1).Info("subscriber connected",
		"channel", base, "version", version.String(), "priority", c.Priority)
	return nil
}

// Disconnect removes fn's subscription on channel, if present.
func (h *Host) Disconnect(channel string, fn Handler) error {
	if h.closed {
		return ErrHostClosed
	}
	base, _, err := parseFixed(channel)
	if err != nil {
		return err
	}
	e, ok := h.channels[base]
	if !ok {
		return nil
	}
	id := h.ids.Identify(fn)
	if _, ok := e.subs[id]; !ok {
		return nil
	}
	delete(e.subs, id)
	h.dropIfEmpty(e)
	if d, ok := h.descriptors[id]; ok {
		delete(d.subscribed, base)
		h.dropIfOrphaned(d)
	}
	h.log.V(1).Info("subscriber disconnected", "channel", base)
	return nil
}

// Channel is a callable handle over one named channel. It adds no
// dispatch semantics of its own.
type Channel struct {
	h    *Host
	name string
}

// ChannelHandle returns a callable handle for name. The name may carry
// a version range that every call through the handle will request.
func (h *Host) ChannelHandle(name string) *Channel {
	return &Channel{h: h, name: name}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) Call(args []any, onError func(error)) (any, error) {
	return c.h.Call(c.name, args, onError)
}

func (c *Channel) Kind() Kind { return KindChannel }
