package host

import (
	"errors"
	"fmt"
	"testing"
)

func mustConnect(t *testing.T, h *Host, channel string, fn Handler, cfg ...Config) {
	t.Helper()
	if err := h.Connect(channel, fn, cfg...); err != nil {
		t.Fatalf("Connect(%s): %v", channel, err)
	}
}

func mustDecorate(t *testing.T, h *Host, channel string, fn Middleware, cfg ...Config) {
	t.Helper()
	if err := h.Decorate(channel, fn, cfg...); err != nil {
		t.Fatalf("Decorate(%s): %v", channel, err)
	}
}

func TestCall_NoImplementation(t *testing.T) {
	h := New()

	if _, err := h.Call("ghost", nil, nil); !errors.Is(err, ErrNoImplementation) {
		t.Fatalf("expected ErrNoImplementation, got %v", err)
	}

	// A subscriber outside the requested range is not an implementation.
	mustConnect(t, h, "greet@2.0.0", func(args ...any) (any, error) { return "v2", nil })
	if _, err := h.Call("greet@1.x", nil, nil); !errors.Is(err, ErrNoImplementation) {
		t.Fatalf("expected ErrNoImplementation for an unsatisfied range, got %v", err)
	}
}

func TestCall_DefaultRangeSelectsDefaultVersion(t *testing.T) {
	h := New()
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return "hello", nil })

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "hello" {
		t.Fatalf("expected hello, got %v", v)
	}
}

func TestCall_PriorityFallback(t *testing.T) {
	h := New()
	var attempts []int

	mustConnect(t, h, "greet", func(args ...any) (any, error) {
		attempts = append(attempts, 1)
		return "p1", nil
	}, Config{Priority: 1})
	mustConnect(t, h, "greet", func(args ...any) (any, error) {
		attempts = append(attempts, 2)
		return "p2", nil
	}, Config{Priority: 2})
	mustConnect(t, h, "greet", func(args ...any) (any, error) {
		attempts = append(attempts, 3)
		return nil, fmt.Errorf("broken")
	}, Config{Priority: 3})

	var failures []SubscriberFailure
	h.Events().Subscribe(TopicSubscriberFailure, func(e Event) {
		failures = append(failures, e.Payload.(SubscriberFailure))
	})
	var hookErrs []error
	v, err := h.Call("greet", nil, func(err error) { hookErrs = append(hookErrs, err) })
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "p2" {
		t.Fatalf("expected the priority-2 result after the priority-3 failure, got %v", v)
	}
	if len(attempts) != 2 || attempts[0] != 3 || attempts[1] != 2 {
		t.Fatalf("expected attempts [3 2], got %v", attempts)
	}
	if len(failures) != 1 {
		t.Fatalf("expected exactly one subscriber-failure notification, got %d", len(failures))
	}
	if failures[0].Priority != 3 {
		t.Fatalf("expected the failure to name the priority-3 attempt, got %+v", failures[0])
	}
	if len(hookErrs) != 1 {
		t.Fatalf("expected the caller error callback once, got %d", len(hookErrs))
	}
}

func TestCall_AllCandidatesFailYieldsNoResultWithoutError(t *testing.T) {
	h := New()
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return nil, fmt.Errorf("a") })
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return nil, fmt.Errorf("b") }, Config{Priority: 1})

	failures := 0
	h.Events().Subscribe(TopicSubscriberFailure, func(e Event) { failures++ })

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("expected no error once an implementation existed, got %v", err)
	}
	if v != nil {
		t.Fatalf("expected no result, got %v", v)
	}
	if failures != 2 {
		t.Fatalf("expected two failure notifications, got %d", failures)
	}
}

func TestCall_SubscriberErrorHookAndPanicIsolation(t *testing.T) {
	h := New()
	var hookErr error
	mustConnect(t, h, "greet", func(args ...any) (any, error) { panic("boom") },
		Config{Priority: 1, OnError: func(err error) { hookErr = err }})
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return "fallback", nil })

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "fallback" {
		t.Fatalf("expected fallback result, got %v", v)
	}
	if hookErr == nil {
		t.Fatalf("expected the subscriber's error hook to observe the panic")
	}
}

func TestCall_ArgumentsReachSubscriber(t *testing.T) {
	h := New()
	mustConnect(t, h, "sum", func(args ...any) (any, error) {
		total := 0
		for _, a := range args {
			total += a.(int)
		}
		return total, nil
	})

	v, err := h.Call("sum", []any{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != 6 {
		t.Fatalf("expected 6, got %v", v)
	}
}

func TestDecorators_NestAscendingPriorityOutsideIn(t *testing.T) {
	h := New()
	var trace []string

	mw := func(tag string) Middleware {
		return func(next Handler) Handler {
			return func(args ...any) (any, error) {
				trace = append(trace, "pre-"+tag)
				v, err := next(args...)
				trace = append(trace, "post-"+tag)
				return v, err
			}
		}
	}

	mustConnect(t, h, "greet", func(args ...any) (any, error) {
		trace = append(trace, "sub")
		return "ok", nil
	})
	mustDecorate(t, h, "greet", mw("hi"), Config{Priority: 2})
	mustDecorate(t, h, "greet", mw("lo"), Config{Priority: -1})

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "ok" {
		t.Fatalf("expected ok, got %v", v)
	}
	want := []string{"pre-lo", "pre-hi", "sub", "post-hi", "post-lo"}
	if len(trace) != len(want) {
		t.Fatalf("expected trace %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("expected trace %v, got %v", want, trace)
		}
	}
}

func TestDecorators_VersionScope(t *testing.T) {
	h := New()
	decorated := 0
	mw := func(next Handler) Handler {
		return func(args ...any) (any, error) {
			decorated++
			return next(args...)
		}
	}

	mustConnect(t, h, "greet@1.0.0", func(args ...any) (any, error) { return "v1", nil })
	mustConnect(t, h, "greet@2.3.1", func(args ...any) (any, error) { return "v2", nil })
	mustDecorate(t, h, "greet@2.x", mw)

	if v, err := h.Call("greet@1.x", nil, nil); err != nil || v != "v1" {
		t.Fatalf("Call 1.x: %v %v", v, err)
	}
	if decorated != 0 {
		t.Fatalf("expected the 2.x decorator to skip the 1.0.0 subscriber")
	}

	if v, err := h.Call("greet@2.x", nil, nil); err != nil || v != "v2" {
		t.Fatalf("Call 2.x: %v %v", v, err)
	}
	if decorated != 1 {
		t.Fatalf("expected the 2.x decorator to wrap the 2.3.1 subscriber")
	}
}

func TestDecorators_WildcardAppliesEverywhere(t *testing.T) {
	h := New()
	seen := map[string]int{}
	mw := func(next Handler) Handler {
		return func(args ...any) (any, error) {
			v, err := next(args...)
			if s, ok := v.(string); ok {
				seen[s]++
			}
			return v, err
		}
	}
	if err := h.DecorateAll(mw); err != nil {
		t.Fatalf("DecorateAll: %v", err)
	}

	mustConnect(t, h, "a", func(args ...any) (any, error) { return "a", nil })
	mustConnect(t, h, "b@3.0.0", func(args ...any) (any, error) { return "b", nil })

	if _, err := h.Call("a", nil, nil); err != nil {
		t.Fatalf("Call a: %v", err)
	}
	if _, err := h.Call("b@3.x", nil, nil); err != nil {
		t.Fatalf("Call b: %v", err)
	}
	if seen["a"] != 1 || seen["b"] != 1 {
		t.Fatalf("expected the wildcard decorator on every channel, got %v", seen)
	}
}

func TestDecorators_MiddleFailureIsTransparent(t *testing.T) {
	h := New()
	subRan := false

	mustConnect(t, h, "greet", func(args ...any) (any, error) {
		subRan = true
		return "result", nil
	})
	mustDecorate(t, h, "greet", func(next Handler) Handler {
		return func(args ...any) (any, error) { return nil, fmt.Errorf("decorator broke") }
	}, Config{Priority: 1})

	var decFailures []DecoratorFailure
	h.Events().Subscribe(TopicDecoratorFailure, func(e Event) {
		decFailures = append(decFailures, e.Payload.(DecoratorFailure))
	})

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !subRan {
		t.Fatalf("expected the subscriber to run despite the failing decorator")
	}
	if v != "result" {
		t.Fatalf("expected the subscriber result unchanged, got %v", v)
	}
	if len(decFailures) != 1 {
		t.Fatalf("expected one decorator-failure notification, got %d", len(decFailures))
	}
}

func TestDecorators_FailureAfterNextKeepsInnerResult(t *testing.T) {
	h := New()
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return "inner", nil })
	mustDecorate(t, h, "greet", func(next Handler) Handler {
		return func(args ...any) (any, error) {
			if _, err := next(args...); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("post-call failure")
		}
	})

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "inner" {
		t.Fatalf("expected the inner result to survive the post-call failure, got %v", v)
	}
}

func TestDecorators_SubscriberFailurePropagatesThroughChain(t *testing.T) {
	h := New()
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return nil, fmt.Errorf("sub broke") }, Config{Priority: 1})
	mustConnect(t, h, "greet", func(args ...any) (any, error) { return "fallback", nil })
	mustDecorate(t, h, "greet", func(next Handler) Handler {
		return func(args ...any) (any, error) { return next(args...) }
	})

	decFailures := 0
	h.Events().Subscribe(TopicDecoratorFailure, func(e Event) { decFailures++ })

	v, err := h.Call("greet", nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != "fallback" {
		t.Fatalf("expected fallback after the wrapped subscriber failed, got %v", v)
	}
	if decFailures != 0 {
		t.Fatalf("expected no decorator-failure notifications for a propagated subscriber error, got %d", decFailures)
	}
}

func TestRemoveDecoratorsMatching(t *testing.T) {
	h := New()
	count := 0
	mw := func(next Handler) Handler {
		return func(args ...any) (any, error) {
			count++
			return next(args...)
		}
	}
	mustDecorate(t, h, "svc/a", mw)
	mustDecorate(t, h, "svc/b", mw)
	mustDecorate(t, h, "other", mw)

	if err := h.RemoveDecoratorsMatching(func(name string) bool {
		return len(name) > 4 && name[:4] == "svc/"
	}, mw); err != nil {
		t.Fatalf("RemoveDecoratorsMatching: %v", err)
	}

	mustConnect(t, h, "svc/a", func(args ...any) (any, error) { return nil, nil })
	mustConnect(t, h, "other", func(args ...any) (any, error) { return nil, nil })
	if _, err := h.Call("svc/a", nil, nil); err != nil {
		t.Fatalf("Call svc/a: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the svc decorators removed, got %d invocations", count)
	}
	if _, err := h.Call("other", nil, nil); err != nil {
		t.Fatalf("Call other: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the unmatched decorator to survive, got %d invocations", count)
	}
}
