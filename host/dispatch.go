package host

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/anvil-platform/forge/internal/semver"
)

// Call dispatches a channel call. The channel name may carry a version
// range as "name@2.x"; an absent range defaults to 1.x.
//
// Candidates are the channel's subscribers whose fixed version
// satisfies the requested range, tried from highest to lowest priority.
// Each attempt composes the candidate's decorator queue in ascending
// priority order; a failing decorator is bypassed, a failing subscriber
// moves dispatch to the next candidate. Failures reach the caller only
// through onError and bus notifications: once at least one compatible
// implementation existed, Call returns a nil error even when every
// candidate failed (the value is nil in that case).
//
// With no compatible implementation at all, Call fails with
// ErrNoImplementation.
func (h *Host) Call(channel string, args []any, onError func(error)) (any, error) {
	if h.closed {
		return nil, ErrHostClosed
	}
	base, want, err := parseRanged(channel)
	if err != nil {
		return nil, err
	}
	dispatchCallsTotal.WithLabelValues(base).Inc()
	start := time.Now()
	defer func() {
		dispatchDuration.Observe(time.Since(start).Seconds())
	}()

	e := h.channels[base]
	candidates := h.collectCandidates(e, want)
	if len(candidates) == 0 {
		dispatchNoImplementationTotal.WithLabelValues(base).Inc()
		return nil, fmt.Errorf("channel %q version %s: %w", base, want.String(), ErrNoImplementation)
	}

	// candidates are in ascending priority order; try highest first.
	for i := len(candidates) - 1; i >= 0; i-- {
		sub := candidates[i]
		att := newAttempt(h, e, sub)
		value, err := att.run(args)
		if err == nil {
			return value, nil
		}
		subscriberFailuresTotal.WithLabelValues(base).Inc()
		if sub.onError != nil {
			sub.onError(err)
		}
		if onError != nil {
			onError(err)
		}
		h.bus.Publish(TopicSubscriberFailure, SubscriberFailure{
			Channel:  base,
			Version:  sub.version.String(),
			Priority: sub.priority,
			Err:      err,
		})
		h.log.V(1).Info("subscriber failed, falling back",
			"channel", base, "version", sub.version.String(), "priority", sub.priority, "error", err.Error())
	}

	// Every candidate failed. The failures were already surfaced through
	// hooks and notifications; the call itself yields no result.
	dispatchExhaustedTotal.WithLabelValues(base).Inc()
	return nil, nil
}

// collectCandidates returns the compatible subscriptions sorted by
// ascending priority. Ties prefer the higher fixed version, then the
// earlier registration.
func (h *Host) collectCandidates(e *channelEntry, want semver.Constraint) []*subscription {
	if e == nil {
		return nil
	}
	var out []*subscription
	for _, s := range e.subs {
		if semver.Satisfies(s.version, want) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		if cmp := semver.Compare(out[i].version, out[j].version); cmp != 0 {
			return cmp < 0
		}
		return out[i].seq > out[j].seq
	})
	return out
}

// attempt executes one candidate subscriber behind its decorator queue.
//
// The queue holds the wrappers in ascending priority order with the
// subscriber as the terminal element. The continuation (next) walks the
// queue; a wrapper may invoke the continuation recursively, consuming
// the elements behind it, so the lowest-priority decorator wraps
// furthest outside and the highest-priority decorator wraps the
// subscriber directly. Result and position are shared between recursion
// levels: whatever the queue produced last stands as the attempt value,
// even when an outer decorator fails after its inner chain completed.
type attempt struct {
	h        *Host
	sub      *subscription
	decs     []*decoration
	wrappers []Handler
	pos      int
	result   any
	subErr   error
}

func newAttempt(h *Host, e *channelEntry, sub *subscription) *attempt {
	decs := h.collectDecorations(e, sub.version)
	sort.Slice(decs, func(i, j int) bool {
		if decs[i].priority != decs[j].priority {
			return decs[i].priority < decs[j].priority
		}
		return decs[i].seq < decs[j].seq
	})
	a := &attempt{h: h, sub: sub, decs: decs}
	// Materialize each wrapper exactly once, every one against the same
	// continuation. Decorators never see each other directly.
	a.wrappers = make([]Handler, len(decs))
	for i, d := range decs {
		a.wrappers[i] = d.fn(a.next)
	}
	return a
}

func (a *attempt) run(args []any) (any, error) {
	_, err := a.next(args...)
	if a.subErr != nil {
		return nil, a.subErr
	}
	var tagged *terminalFailure
	if errors.As(err, &tagged) {
		return nil, tagged.err
	}
	return a.result, nil
}

// next is the shared continuation driving the decorator queue.
func (a *attempt) next(args ...any) (any, error) {
	for a.pos < len(a.wrappers)+1 {
		i := a.pos
		a.pos++

		if i == len(a.wrappers) {
			// Terminal element: the subscriber. Its failure is tagged so
			// decorator levels rethrow instead of swallowing it.
			value, err := safeInvoke(a.sub.fn, args)
			if err != nil {
				a.subErr = err
				return a.result, &terminalFailure{err: err}
			}
			a.result = value
			continue
		}

		d := a.decs[i]
		value, err := safeInvoke(a.wrappers[i], args)
		if err != nil {
			var tagged *terminalFailure
			if errors.As(err, &tagged) {
				return a.result, err
			}
			// Transparent decorator failure: bypass it, keep the previous
			// value, keep walking the queue.
			decoratorFailuresTotal.WithLabelValues(a.sub.channel).Inc()
			if d.onError != nil {
				d.onError(err)
			}
			a.h.bus.Publish(TopicDecoratorFailure, DecoratorFailure{
				Channel:  a.sub.channel,
				Wildcard: d.wildcard,
				Priority: d.priority,
				Err:      err,
			})
			a.h.log.V(1).Info("decorator failed, bypassed",
				"channel", a.sub.channel, "wildcard", d.wildcard, "priority", d.priority, "error", err.Error())
			continue
		}
		a.result = value
	}
	return a.result, nil
}

// safeInvoke shields the dispatch loop from panicking extension code.
func safeInvoke(fn Handler, args []any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return fn(args...)
}
