package funcid

import "testing"

func namedA(args ...any) (any, error) { return "a", nil }
func namedB(args ...any) (any, error) { return "b", nil }

func TestIdentifyStable(t *testing.T) {
	r := NewRegistry()

	fn := func(args ...any) (any, error) { return nil, nil }
	if r.Identify(fn) != r.Identify(fn) {
		t.Fatalf("expected the same function value to keep its id")
	}
	if r.Len() != 1 {
		t.Fatalf("expected one entry, got %d", r.Len())
	}
}

func TestIdentifyDistinguishesClosureInstances(t *testing.T) {
	r := NewRegistry()

	// Capturing closures get a fresh funcval per instance while sharing
	// one code pointer, which is exactly the collision the bucket list
	// has to resolve.
	mk := func(tag string) func(args ...any) (any, error) {
		return func(args ...any) (any, error) { return tag, nil }
	}
	f1 := mk("x")
	f2 := mk("x")

	if r.Identify(f1) == r.Identify(f2) {
		t.Fatalf("expected distinct closures with identical bodies to get distinct ids")
	}
	if r.Identify(f1) != r.Identify(f1) {
		t.Fatalf("expected f1 to keep its id after f2 was registered")
	}
}

func TestIdentifyDistinguishesNamedFunctions(t *testing.T) {
	r := NewRegistry()

	if r.Identify(namedA) == r.Identify(namedB) {
		t.Fatalf("expected distinct named functions to get distinct ids")
	}
	if r.Identify(namedA) != r.Identify(namedA) {
		t.Fatalf("expected a named function to keep its id")
	}
}

func TestIdentifyRejectsNonFunctions(t *testing.T) {
	r := NewRegistry()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Identify to panic on a non-function value")
		}
	}()
	r.Identify(42)
}
