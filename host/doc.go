// Package host implements the in-process plugin host: a versioned
// dispatch bus over named channels.
//
// A channel is a named extension point callable like a function. Any
// number of subscribers implement a channel, each at a fixed semantic
// version and a signed priority; a call requests a version range and is
// dispatched to the highest-priority compatible subscriber, falling back
// down the priority order when an implementation fails. Decorators wrap
// channel execution, selected per candidate by a version range (or
// unconditionally for wildcard decorators) and composed in ascending
// priority order, outside-in.
//
// Failures originating in extension code never destabilize the host:
// a failing decorator is bypassed, a failing subscriber triggers
// fallback, and both are surfaced only through error hooks and
// notifications on the host's event bus.
package host
