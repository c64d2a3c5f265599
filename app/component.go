package app

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/forge/host"
)

// CreateFunc builds a component's API. It runs during initialization
// and wires the component into the host's channel table.
type CreateFunc func(cc *Context) (any, error)

// Context is the execution context handed to a component's creation
// function.
type Context struct {
	Host    *host.Host
	App     *App
	Name    string
	Version string
	Log     logr.Logger
}

// ComponentDef declares a component: a named, versioned unit with a
// creation function and the capabilities it offers and requires.
//
// Create may be nil when ModuleRef names a module the app's Resolver
// can turn into a creation function.
type ComponentDef struct {
	Name      string
	Version   string
	Provides  []string
	Requires  []string
	ModuleRef string
	Create    CreateFunc
}

// Destroyer is the optional teardown capability of a component API,
// checked structurally at removal time.
type Destroyer interface {
	Destroy() error
}

// Instance is a live component: it exists only between successful
// initialization and removal.
type Instance struct {
	ID      string
	Name    string
	Version string
	API     any
}

// DuplicateError reports a second registration of the same component
// name and version.
type DuplicateError struct {
	Name    string
	Version string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("component %s@%s is already registered", e.Name, e.Version)
}

type componentState int

const (
	stateRegistered componentState = iota
	stateInitializing
	stateReady
	stateInitFailed
)

func (s componentState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateInitFailed:
		return "init-failed"
	default:
		return "registered"
	}
}

// component is the manager's record of one registered definition.
type component struct {
	def   ComponentDef
	key   string
	state componentState
}
