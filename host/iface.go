package host

import (
	"errors"
	"sort"
)

// Kind classifies the callable values handed out by the host.
type Kind int

const (
	KindUnknown Kind = iota
	KindChannel
	KindInterfaceDefinition
	KindInterfaceClient
	KindFacade
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindInterfaceDefinition:
		return "interface-definition"
	case KindInterfaceClient:
		return "interface-client"
	case KindFacade:
		return "facade"
	default:
		return "unknown"
	}
}

type classified interface {
	Kind() Kind
}

// KindOf classifies v as one of the host's callable values, or
// KindUnknown.
func KindOf(v any) Kind {
	if c, ok := v.(classified); ok {
		return c.Kind()
	}
	return KindUnknown
}

// InterfaceDefinition groups channels under one namespace and owns
// their implementations. Each method key maps to the channel
// "name/key"; a version suffix embedded in a key survives into the
// channel name. The definition connects and disconnects all of its
// channels as one unit and its methods dispatch through the host; it
// adds no semantics of its own.
type InterfaceDefinition struct {
	h        *Host
	name     string
	impls    map[string]Handler
	channels map[string]string
}

// CreateInterface builds a definition from a method-name to
// implementation map. Nothing is registered until Connect is called.
func (h *Host) CreateInterface(name string, methods map[string]Handler) *InterfaceDefinition {
	def := &InterfaceDefinition{
		h:        h,
		name:     name,
		impls:    make(map[string]Handler, len(methods)),
		channels: make(map[string]string, len(methods)),
	}
	for method, fn := range methods {
		base, version := splitChannel(method)
		channel := name + "/" + base
		if version != "" {
			channel += "@" + version
		}
		def.impls[method] = fn
		def.channels[baseMethod(method)] = channel
	}
	return def
}

func baseMethod(method string) string {
	base, _ := splitChannel(method)
	return base
}

func (d *InterfaceDefinition) Name() string { return d.name }

func (d *InterfaceDefinition) Kind() Kind { return KindInterfaceDefinition }

// Methods returns the interface's method names, sorted.
func (d *InterfaceDefinition) Methods() []string {
	out := make([]string, 0, len(d.channels))
	for m := range d.channels {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Connect registers every mapped implementation on its channel.
func (d *InterfaceDefinition) Connect(cfg ...Config) error {
	var errs []error
	for method, fn := range d.impls {
		channel := d.channels[baseMethod(method)]
		if err := d.h.Connect(channel, fn, cfg...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Disconnect removes every mapped implementation from its channel.
func (d *InterfaceDefinition) Disconnect() error {
	var errs []error
	for method, fn := range d.impls {
		channel := d.channels[baseMethod(method)]
		if err := d.h.Disconnect(channel, fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invoke dispatches a call on the named method's channel.
func (d *InterfaceDefinition) Invoke(method string, args []any, onError func(error)) (any, error) {
	channel, ok := d.channels[method]
	if !ok {
		return nil, &ValidationError{Channel: d.name + "/" + method, Reason: "interface has no such method"}
	}
	return d.h.Call(channel, args, onError)
}

// InterfaceClient is a call-only view over an interface's channels.
// It registers nothing.
type InterfaceClient struct {
	h        *Host
	name     string
	channels map[string]string
}

// GetInterface returns a call-only client over the channels of the
// named interface, restricted to the listed methods.
func (h *Host) GetInterface(name string, methods []string) *InterfaceClient {
	c := &InterfaceClient{
		h:        h,
		name:     name,
		channels: make(map[string]string, len(methods)),
	}
	for _, m := range methods {
		base, version := splitChannel(m)
		channel := name + "/" + base
		if version != "" {
			channel += "@" + version
		}
		c.channels[base] = channel
	}
	return c
}

func (c *InterfaceClient) Name() string { return c.name }

func (c *InterfaceClient) Kind() Kind { return KindInterfaceClient }

func (c *InterfaceClient) Invoke(method string, args []any, onError func(error)) (any, error) {
	channel, ok := c.channels[method]
	if !ok {
		return nil, &ValidationError{Channel: c.name + "/" + method, Reason: "interface client has no such method"}
	}
	return c.h.Call(channel, args, onError)
}

// Facade is a free-form, call-only projection of arbitrary channels
// under custom method names.
type Facade struct {
	h        *Host
	channels map[string]string
}

// CreateFacade builds a facade from a method-name to channel-name map.
func (h *Host) CreateFacade(channels map[string]string) *Facade {
	f := &Facade{h: h, channels: make(map[string]string, len(channels))}
	for method, channel := range channels {
		f.channels[method] = channel
	}
	return f
}

func (f *Facade) Kind() Kind { return KindFacade }

func (f *Facade) Invoke(method string, args []any, onError func(error)) (any, error) {
	channel, ok := f.channels[method]
	if !ok {
		return nil, &ValidationError{Channel: method, Reason: "facade has no such method"}
	}
	return f.h.Call(channel, args, onError)
}
