// Package app implements the component lifecycle manager: registration,
// dependency-ordered initialization, and partial-failure-tolerant
// init and teardown over a plugin host.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/anvil-platform/forge/host"
	"github.com/anvil-platform/forge/internal/graph"
	"github.com/anvil-platform/forge/internal/semver"
)

// ErrDestroyed is returned by every operation after Destroy.
var ErrDestroyed = errors.New("application is destroyed")

// App owns component registration and the capability dependency graph,
// and initializes components in topological order. A failing component
// is isolated: it is reported on the host's bus and never blocks its
// siblings.
//
// Like the host it drives, an App is single-threaded: all operations
// run to completion on the caller's stack.
type App struct {
	h        *host.Host
	log      logr.Logger
	resolver Resolver

	g          *graph.Graph
	components map[string]*component
	queue      []string
	// instances is keyed by component name only, while registration is
	// keyed by name+version. When two versions of one name are live, the
	// later-initialized instance is the one removal sees.
	instances   map[string]*Instance
	readyOrder  []string
	initialized bool
	destroyed   bool
}

// Option configures an App.
type Option func(*App)

// WithResolver installs the resolver used for definitions that carry a
// ModuleRef instead of a creation function.
func WithResolver(r Resolver) Option {
	return func(a *App) { a.resolver = r }
}

// WithLogger sets the structured logger. Defaults to the host's logger.
func WithLogger(log logr.Logger) Option {
	return func(a *App) { a.log = log }
}

func New(h *host.Host, opts ...Option) *App {
	a := &App{
		h:          h,
		log:        h.Log().WithName("app"),
		g:          graph.New(),
		components: make(map[string]*component),
		instances:  make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Host returns the plugin host the app drives.
func (a *App) Host() *host.Host { return a.h }

func componentKey(name, version string) string {
	return name + "@" + version
}

func normalizeVersion(version string) (string, error) {
	if version == "" {
		return semver.DefaultVersion().String(), nil
	}
	if !semver.IsVersion(version) {
		return "", fmt.Errorf("component version %q is not a fully-resolved semantic version", version)
	}
	return version, nil
}

// AddComponent registers def and records its capability edges. A second
// registration of the same name+version fails with a DuplicateError.
// When the app is already initialized the component initializes
// immediately, in isolation; otherwise it is queued for Init.
func (a *App) AddComponent(def ComponentDef) error {
	if a.destroyed {
		return ErrDestroyed
	}
	if def.Name == "" {
		return fmt.Errorf("component name must not be empty")
	}
	version, err := normalizeVersion(def.Version)
	if err != nil {
		return err
	}
	def.Version = version
	if def.Create == nil {
		if def.ModuleRef == "" {
			return fmt.Errorf("component %s@%s has neither a creation function nor a module reference", def.Name, version)
		}
		if a.resolver == nil {
			return fmt.Errorf("component %s@%s needs a resolver for module reference %q", def.Name, version, def.ModuleRef)
		}
	}

	key := componentKey(def.Name, version)
	if _, ok := a.components[key]; ok {
		return &DuplicateError{Name: def.Name, Version: version}
	}

	comp := &component{def: def, key: key}
	a.components[key] = comp
	componentsRegistered.Set(float64(len(a.components)))

	node := graph.ComponentNode(key)
	a.g.Ensure(node)
	for _, capability := range def.Provides {
		if err := a.g.AddDependency(graph.CapabilityNode(capability), node); err != nil {
			return err
		}
	}
	for _, capability := range def.Requires {
		if err := a.g.AddDependency(node, graph.CapabilityNode(capability)); err != nil {
			return err
		}
	}

	a.h.Events().Publish(host.TopicComponentAdded, host.ComponentEvent{Name: def.Name, Version: version})
	a.log.V(1).Info("component registered",
		"name", def.Name, "version", version, "provides", def.Provides, "requires", def.Requires)

	if a.initialized {
		a.initComponent(comp)
	} else {
		a.queue = append(a.queue, key)
	}
	return nil
}

// HasComponent reports whether name+version is registered and not
// removed. An empty version means 1.0.0.
func (a *App) HasComponent(name, version string) bool {
	v, err := normalizeVersion(version)
	if err != nil {
		return false
	}
	_, ok := a.components[componentKey(name, v)]
	return ok
}

// Init initializes every queued component in dependency order. It is
// idempotent. A cycle in the capability graph is a fatal configuration
// error; an individual component's failure is caught, reported on the
// bus, and does not block the components after it. A single ready
// notification is published once all attempts are done.
func (a *App) Init() error {
	if a.destroyed {
		return ErrDestroyed
	}
	if a.initialized {
		return nil
	}

	order, err := a.g.TopoOrder()
	if err != nil {
		return fmt.Errorf("app: cannot order components: %w", err)
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		if n.Kind == graph.KindComponent {
			pos[n.Name] = i
		}
	}

	queue := a.queue
	a.queue = nil
	stableSortByPosition(queue, pos)

	for _, key := range queue {
		comp, ok := a.components[key]
		if !ok {
			// Removed while still queued.
			continue
		}
		a.initComponent(comp)
	}

	a.initialized = true
	a.h.Events().Publish(host.TopicReady, nil)
	a.log.Info("application ready", "components", len(a.components))
	return nil
}

// stableSortByPosition orders keys by their position in the topological
// order. Keys without a placement keep their relative order, after the
// placed ones.
func stableSortByPosition(keys []string, pos map[string]int) {
	type placed struct {
		key string
		pos int
		ok  bool
	}
	ps := make([]placed, len(keys))
	for i, k := range keys {
		p, ok := pos[k]
		ps[i] = placed{key: k, pos: p, ok: ok}
	}
	// Insertion sort keeps equal and unplaced elements stable.
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0; j-- {
			a, b := ps[j-1], ps[j]
			if b.ok && (!a.ok || b.pos < a.pos) {
				ps[j-1], ps[j] = b, a
				continue
			}
			break
		}
	}
	for i, p := range ps {
		keys[i] = p.key
	}
}

func (a *App) initComponent(comp *component) {
	def := comp.def
	comp.state = stateInitializing
	start := time.Now()

	api, err := a.create(def)
	componentInitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		comp.state = stateInitFailed
		componentInitFailuresTotal.Inc()
		a.h.Events().Publish(host.TopicComponentInitFailure, host.ComponentFailure{
			Name:    def.Name,
			Version: def.Version,
			Err:     err,
		})
		a.log.Error(err, "component initialization failed", "name", def.Name, "version", def.Version)
		return
	}

	comp.state = stateReady
	a.instances[def.Name] = &Instance{
		ID:      uuid.NewString(),
		Name:    def.Name,
		Version: def.Version,
		API:     api,
	}
	a.readyOrder = append(a.readyOrder, comp.key)
	componentsReady.Set(float64(len(a.instances)))
	a.log.V(1).Info("component ready", "name", def.Name, "version", def.Version)
}

// create resolves and runs the creation function, shielding the manager
// from panicking component code.
func (a *App) create(def ComponentDef) (api any, err error) {
	defer func() {
		if p := recover(); p != nil {
			api = nil
			err = fmt.Errorf("creation panic: %v", p)
		}
	}()

	create := def.Create
	if create == nil {
		create, err = a.resolver.Resolve(context.Background(), def.ModuleRef)
		if err != nil {
			return nil, fmt.Errorf("resolve module %q: %w", def.ModuleRef, err)
		}
		if create == nil {
			return nil, fmt.Errorf("resolver returned no creation function for module %q", def.ModuleRef)
		}
	}
	return create(&Context{
		Host:    a.h,
		App:     a,
		Name:    def.Name,
		Version: def.Version,
		Log:     a.log.WithName(def.Name),
	})
}

// RemoveComponent unregisters name+version. A live instance exposing
// the Destroyer capability is torn down in a guarded scope: a teardown
// failure is reported on the bus, never propagated. Removing an
// unregistered component is a no-op.
//
// The component's graph node and capability edges deliberately stay in
// place, so re-adding the same name+version later reuses them.
func (a *App) RemoveComponent(name, version string) error {
	if a.destroyed {
		return ErrDestroyed
	}
	v, err := normalizeVersion(version)
	if err != nil {
		return err
	}
	key := componentKey(name, v)
	if _, ok := a.components[key]; !ok {
		return nil
	}

	if inst, ok := a.instances[name]; ok {
		a.teardown(inst)
		delete(a.instances, name)
		componentsReady.Set(float64(len(a.instances)))
	}

	delete(a.components, key)
	componentsRegistered.Set(float64(len(a.components)))
	for i, k := range a.queue {
		if k == key {
			a.queue = append(a.queue[:i], a.queue[i+1:]...)
			break
		}
	}

	a.h.Events().Publish(host.TopicComponentRemoved, host.ComponentEvent{Name: name, Version: v})
	a.log.V(1).Info("component removed", "name", name, "version", v)
	return nil
}

func (a *App) teardown(inst *Instance) {
	d, ok := inst.API.(Destroyer)
	if !ok {
		return
	}
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("teardown panic: %v", p)
			}
		}()
		return d.Destroy()
	}()
	if err != nil {
		a.h.Events().Publish(host.TopicComponentDestroyFailure, host.ComponentFailure{
			Name:    inst.Name,
			Version: inst.Version,
			Err:     err,
		})
		a.log.Error(err, "component teardown failed", "name", inst.Name, "version", inst.Version)
	}
}

// Destroy removes every remaining component, most recently initialized
// first, then releases the host. The app is unusable afterwards.
func (a *App) Destroy() error {
	if a.destroyed {
		return nil
	}
	for i := len(a.readyOrder) - 1; i >= 0; i-- {
		key := a.readyOrder[i]
		if comp, ok := a.components[key]; ok {
			if err := a.RemoveComponent(comp.def.Name, comp.def.Version); err != nil {
				return err
			}
		}
	}
	// Components that never became ready.
	for _, comp := range a.components {
		if err := a.RemoveComponent(comp.def.Name, comp.def.Version); err != nil {
			return err
		}
	}
	a.destroyed = true
	a.h.Close()
	a.log.Info("application destroyed")
	return nil
}
