package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvil-platform/forge/app"
	"github.com/anvil-platform/forge/host"
)

// builtinResolver maps "builtin:" module references to the demo's
// component factories. It stands in for real component discovery, which
// lives outside the runtime.
func builtinResolver() app.Resolver {
	factories := map[string]app.CreateFunc{
		"builtin:greeter":   newGreeter,
		"builtin:shouter":   newShouter,
		"builtin:announcer": newAnnouncer,
	}
	return app.ResolverFunc(func(ctx context.Context, ref string) (app.CreateFunc, error) {
		create, ok := factories[ref]
		if !ok {
			return nil, fmt.Errorf("unknown module %q", ref)
		}
		return create, nil
	})
}

// newGreeter offers demo.greeting and implements the demo/greet channel.
func newGreeter(cc *app.Context) (any, error) {
	return nil, cc.Host.Connect("demo/greet", func(args ...any) (any, error) {
		name := "world"
		if len(args) > 0 {
			if s, ok := args[0].(string); ok && s != "" {
				name = s
			}
		}
		return "hello, " + name, nil
	})
}

// newShouter decorates demo/greet, upper-casing whatever the chain
// produced.
func newShouter(cc *app.Context) (any, error) {
	return nil, cc.Host.Decorate("demo/greet", func(next host.Handler) host.Handler {
		return func(args ...any) (any, error) {
			v, err := next(args...)
			if err != nil {
				return nil, err
			}
			if s, ok := v.(string); ok {
				return strings.ToUpper(s), nil
			}
			return v, nil
		}
	}, host.Config{Priority: 1})
}

type announcer struct {
	cc *app.Context
}

// newAnnouncer requires demo.greeting and watches the bus for failures.
func newAnnouncer(cc *app.Context) (any, error) {
	cc.Host.Events().Subscribe(host.TopicSubscriberFailure, func(e host.Event) {
		f := e.Payload.(host.SubscriberFailure)
		cc.Log.Info("subscriber failed", "channel", f.Channel, "error", f.Err.Error())
	})
	return &announcer{cc: cc}, nil
}

func (a *announcer) Destroy() error {
	a.cc.Log.Info("announcer shutting down")
	return nil
}
