package host

// Notification topics published by the host and the lifecycle manager.
// None of them require a subscriber to exist.
const (
	TopicError                   = "forge.error"
	TopicDecoratorFailure        = "forge.decorator.failure"
	TopicSubscriberFailure       = "forge.subscriber.failure"
	TopicComponentInitFailure    = "forge.component.init.failure"
	TopicComponentDestroyFailure = "forge.component.destroy.failure"
	TopicReady                   = "forge.ready"
	TopicComponentAdded          = "forge.component.added"
	TopicComponentRemoved        = "forge.component.removed"
)

// DecoratorFailure is the payload on TopicDecoratorFailure. The failure
// was swallowed; dispatch continued without the decorator.
type DecoratorFailure struct {
	Channel  string
	Wildcard bool
	Priority int
	Err      error
}

// SubscriberFailure is the payload on TopicSubscriberFailure. Dispatch
// fell back to the next-lower-priority subscriber, if any.
type SubscriberFailure struct {
	Channel  string
	Version  string
	Priority int
	Err      error
}

// ComponentFailure is the payload on TopicComponentInitFailure and
// TopicComponentDestroyFailure.
type ComponentFailure struct {
	Name    string
	Version string
	Err     error
}

// ComponentEvent is the payload on TopicComponentAdded and
// TopicComponentRemoved.
type ComponentEvent struct {
	Name    string
	Version string
}
