package host

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/internal/funcid"
	"github.com/anvil-platform/forge/internal/semver"
)

// Handler implements a channel. Arguments are the call arguments; a
// non-nil error marks the attempt as failed.
type Handler func(args ...any) (any, error)

// Middleware builds a decorator wrapper. It is invoked once per dispatch
// attempt with the shared continuation and must return the wrapper that
// will run in the decorator's queue position. The wrapper may invoke
// next to run the rest of the chain, or skip it and let the dispatch
// loop continue on its own.
type Middleware func(next Handler) Handler

// Config carries optional registration settings for subscribers and
// decorators.
type Config struct {
	// Priority orders subscribers and decorators. Any signed integer;
	// higher-priority subscribers are preferred, lower-priority
	// decorators wrap further outside. Defaults to 0.
	Priority int

	// OnError is invoked when this registration's handler fails.
	OnError func(error)
}

// descriptor is the per-unique-function bookkeeping: which channels the
// function subscribes to and which it decorates. It is dropped as soon
// as both sets are empty.
type descriptor struct {
	id         funcid.ID
	subscribed map[string]struct{}
	decorated  map[string]struct{}
}

// Host is a versioned dispatch bus. A Host owns its channel table and
// notification bus exclusively; multiple hosts share nothing.
//
// All operations are synchronous and run to completion on the caller's
// stack. The Host is not safe for concurrent use.
type Host struct {
	log         logr.Logger
	ids         *funcid.Registry
	channels    map[string]*channelEntry
	wildcards   map[funcid.ID]*decoration
	descriptors map[funcid.ID]*descriptor
	bus         *Bus
	seq         int
	closed      bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the structured logger. Defaults to logr.Discard.
func WithLogger(log logr.Logger) Option {
	return func(h *Host) { h.log = log }
}

func New(opts ...Option) *Host {
	h := &Host{
		log:         logr.Discard(),
		ids:         funcid.NewRegistry(),
		channels:    make(map[string]*channelEntry),
		wildcards:   make(map[funcid.ID]*decoration),
		descriptors: make(map[funcid.ID]*descriptor),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.bus = newBus(h.log.WithName("bus"), h.ids)
	return h
}

// Events returns the host's notification bus.
func (h *Host) Events() *Bus { return h.bus }

// Log returns the host's logger.
func (h *Host) Log() logr.Logger { return h.log }

// Close releases the channel table and the bus. Every operation on a
// closed host fails with ErrHostClosed; calls into the bus become no-ops.
func (h *Host) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.channels = make(map[string]*channelEntry)
	h.wildcards = make(map[funcid.ID]*decoration)
	h.descriptors = make(map[funcid.ID]*descriptor)
	h.bus.handlers = make(map[string][]*busEntry)
}

func (h *Host) descriptorFor(id funcid.ID) *descriptor {
	d, ok := h.descriptors[id]
	if !ok {
		d = &descriptor{
			id:         id,
			subscribed: make(map[string]struct{}),
			decorated:  make(map[string]struct{}),
		}
		h.descriptors[id] = d
	}
	return d
}

// dropIfOrphaned removes the descriptor once it neither subscribes to
// nor decorates any channel.
func (h *Host) dropIfOrphaned(d *descriptor) {
	if len(d.subscribed) == 0 && len(d.decorated) == 0 {
		delete(h.descriptors, d.id)
	}
}

// wildcardName is the reserved channel name for wildcard decorators.
const wildcardName = "*"

// splitChannel splits "name@version" into its parts. The version part
// may be empty.
func splitChannel(raw string) (base, version string) {
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

// parseFixed parses a channel name whose version segment, if present,
// must be a fully-resolved semantic version. Absent versions default to
// 1.0.0.
func parseFixed(raw string) (string, semver.Version, error) {
	base, vs := splitChannel(raw)
	if base == "" {
		return "", semver.Version{}, &ValidationError{Channel: raw, Reason: "empty channel name"}
	}
	if base == wildcardName {
		return "", semver.Version{}, &ValidationError{Channel: raw, Reason: "name is reserved for wildcard decorators"}
	}
	if vs == "" {
		return base, semver.DefaultVersion(), nil
	}
	if !semver.IsVersion(vs) {
		return "", semver.Version{}, &ValidationError{Channel: raw, Reason: "version must be a fully-resolved semantic version"}
	}
	return base, semver.MustParseVersion(vs), nil
}

// parseRanged parses a channel name whose version segment, if present,
// is a semantic version range. Absent ranges default to 1.x.
func parseRanged(raw string) (string, semver.Constraint, error) {
	base, vs := splitChannel(raw)
	if base == "" {
		return "", semver.Constraint{}, &ValidationError{Channel: raw, Reason: "empty channel name"}
	}
	if base == wildcardName {
		return "", semver.Constraint{}, &ValidationError{Channel: raw, Reason: "name is reserved for wildcard decorators"}
	}
	if vs == "" {
		return base, semver.DefaultConstraint(), nil
	}
	c, err := semver.ParseConstraint(vs)
	if err != nil {
		return "", semver.Constraint{}, &ValidationError{Channel: raw, Reason: "invalid version range", Err: err}
	}
	return base, c, nil
}

func firstConfig(cfg []Config) Config {
	if len(cfg) > 0 {
		return cfg[0]
	}
	return Config{}
}
