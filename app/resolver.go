package app

import "context"

// Resolver maps a component's module reference to a creation function.
// It keeps storage and loading concerns out of the lifecycle core: the
// manager is indifferent to how a module is located, only that the
// result is callable.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (CreateFunc, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref string) (CreateFunc, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref string) (CreateFunc, error) {
	return f(ctx, ref)
}
