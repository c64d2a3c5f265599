package host

import (
	"github.com/anvil-platform/forge/internal/funcid"
	"github.com/anvil-platform/forge/internal/semver"
)

// Decorate registers fn as a decorator on channel. The channel name may
// carry a version range as "name@2.x"; an absent range defaults to 1.x.
// The decorator applies to a dispatch attempt when the candidate
// subscriber's fixed version satisfies the range. Decorating an
// already-decorated (channel, fn) pair is a silent no-op.
func (h *Host) Decorate(channel string, fn Middleware, cfg ...Config) error {
	if h.closed {
		return ErrHostClosed
	}
	base, scope, err := parseRanged(channel)
	if err != nil {
		return err
	}
	c := firstConfig(cfg)
	id := h.ids.Identify(fn)
	e := h.entryFor(base)
	if _, ok := e.decorations[id]; ok {
		h.dropIfEmpty(e)
		return nil
	}
	h.seq++
	e.decorations[id] = &decoration{
		channel:  base,
		scope:    scope,
		priority: c.Priority,
		onError:  c.OnError,
		fn:       fn,
		id:       id,
		seq:      h.seq,
	}
	h.descriptorFor(id).decorated[base] = struct{}{}
	h.log.V(1).Info("decorator registered",
		"channel", base, "scope", scope.String(), "priority", c.Priority)
	return nil
}

// DecorateAll registers fn as a wildcard decorator, applied to every
// channel regardless of the requested version.
func (h *Host) DecorateAll(fn Middleware, cfg ...Config) error {
	if h.closed {
		return ErrHostClosed
	}
	c := firstConfig(cfg)
	id := h.ids.Identify(fn)
	if _, ok := h.wildcards[id]; ok {
		return nil
	}
	h.seq++
	h.wildcards[id] = &decoration{
		channel:  wildcardName,
		wildcard: true,
		priority: c.Priority,
		onError:  c.OnError,
		fn:       fn,
		id:       id,
		seq:      h.seq,
	}
	h.descriptorFor(id).decorated[wildcardName] = struct{}{}
	h.log.V(1).Info("wildcard decorator registered", "priority", c.Priority)
	return nil
}

// RemoveDecorator removes fn's decoration on the exactly named channel,
// if present. Any version suffix on the name is ignored.
func (h *Host) RemoveDecorator(channel string, fn Middleware) error {
	if h.closed {
		return ErrHostClosed
	}
	base, _ := splitChannel(channel)
	if base == wildcardName {
		return h.RemoveAllDecorator(fn)
	}
	h.removeDecoration(base, h.ids.Identify(fn))
	return nil
}

// RemoveDecoratorsMatching removes fn's decoration from every channel
// whose name satisfies pred.
func (h *Host) RemoveDecoratorsMatching(pred func(channel string) bool, fn Middleware) error {
	if h.closed {
		return ErrHostClosed
	}
	id := h.ids.Identify(fn)
	d, ok := h.descriptors[id]
	if !ok {
		return nil
	}
	var matched []string
	for name := range d.decorated {
		if name != wildcardName && pred(name) {
			matched = append(matched, name)
		}
	}
	for _, name := range matched {
		h.removeDecoration(name, id)
	}
	return nil
}

// RemoveAllDecorator removes fn from the wildcard decorator pool, if
// present.
func (h *Host) RemoveAllDecorator(fn Middleware) error {
	if h.closed {
		return ErrHostClosed
	}
	id := h.ids.Identify(fn)
	if _, ok := h.wildcards[id]; !ok {
		return nil
	}
	delete(h.wildcards, id)
	if d, ok := h.descriptors[id]; ok {
		delete(d.decorated, wildcardName)
		h.dropIfOrphaned(d)
	}
	return nil
}

func (h *Host) removeDecoration(name string, id funcid.ID) {
	e, ok := h.channels[name]
	if !ok {
		return
	}
	if _, ok := e.decorations[id]; !ok {
		return
	}
	delete(e.decorations, id)
	h.dropIfEmpty(e)
	if d, ok := h.descriptors[id]; ok {
		delete(d.decorated, name)
		h.dropIfOrphaned(d)
	}
	h.log.V(1).Info("decorator removed", "channel", name)
}

// collectDecorations builds the decorator queue for one candidate
// subscriber: channel-scoped decorations whose range the candidate's
// fixed version satisfies, plus every wildcard decorator.
func (h *Host) collectDecorations(e *channelEntry, candidate semver.Version) []*decoration {
	var out []*decoration
	if e != nil {
		for _, d := range e.decorations {
			if semver.Satisfies(candidate, d.scope) {
				out = append(out, d)
			}
		}
	}
	for _, d := range h.wildcards {
		out = append(out, d)
	}
	return out
}
