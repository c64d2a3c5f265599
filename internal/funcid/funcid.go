// Package funcid assigns stable structural identities to function values.
//
// Two lookups of the same function value always yield the same ID, while
// distinct function values (including separate closures produced by the
// same source expression) yield distinct IDs. That property is what lets
// callers deregister a handler by passing the handler itself.
package funcid

import (
	"reflect"
	"unsafe"
)

// ID identifies one unique function value within a Registry.
type ID uint64

type entry struct {
	ref unsafe.Pointer
	id  ID
}

// Registry maps function values to IDs.
//
// Entries are never evicted: the registry grows monotonically for its
// lifetime. Not safe for concurrent use; callers serialize access.
type Registry struct {
	next    ID
	buckets map[uintptr][]entry
}

func NewRegistry() *Registry {
	return &Registry{buckets: make(map[uintptr][]entry)}
}

// Identify returns the ID for fn, assigning one on first sight.
//
// fn must be a function value. Closures created by the same expression
// share a code pointer but carry distinct capture records, so they are
// bucketed by code pointer and disambiguated by the function value's
// own reference.
func (r *Registry) Identify(fn any) ID {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("funcid: Identify called with a non-function value")
	}
	code := v.Pointer()
	ref := funcref(fn)
	for _, e := range r.buckets[code] {
		if e.ref == ref {
			return e.id
		}
	}
	r.next++
	r.buckets[code] = append(r.buckets[code], entry{ref: ref, id: r.next})
	return r.next
}

// Len returns the number of distinct function values seen so far.
func (r *Registry) Len() int {
	n := 0
	for _, b := range r.buckets {
		n += len(b)
	}
	return n
}

type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// funcref extracts the funcval pointer from an interface holding a
// function. Functions are pointer-shaped, so the interface data word is
// the funcval itself and is stable for a given function value.
func funcref(fn any) unsafe.Pointer {
	return (*iface)(unsafe.Pointer(&fn)).data
}
