package guardrail

import "github.com/google/uuid"

// defaultRegistry is the process-wide singleton behind the
// package-level Register/Unregister/Resources functions, per spec.md
// §9's "module-level registry" design note: a single write-protected
// map with an explicit lifecycle, reset between test cases via Reset.
var defaultRegistry = New()

// Register returns the default registry's resource for id, creating it
// with opts on first call.
func Register(id string, opts Options) *ProtectedResource {
	return defaultRegistry.Register(id, opts)
}

// RegisterAdapterConsumer is RegisterConsumer against the default
// registry, for adapters that want weak-referenced lifecycle tracking
// keyed off their own instance.
func RegisterAdapterConsumer[C any](id string, opts Options, client *C) *ProtectedResource {
	return RegisterConsumer(defaultRegistry, id, opts, client)
}

// Unregister removes id from the default registry and destroys its resource.
func Unregister(id string) { defaultRegistry.Unregister(id) }

// UnregisterAll unregisters every resource in the default registry.
func UnregisterAll() { defaultRegistry.UnregisterAll() }

// DestroyAllResources is an alias for UnregisterAll, matching the
// external interface's destroy_all_resources name.
func DestroyAllResources() { UnregisterAll() }

// Resources returns a snapshot of the default registry's identifier ->
// resource map.
func Resources() map[string]*ProtectedResource { return defaultRegistry.Resources() }

// Consumers returns the number of live consumers registered against id
// in the default registry.
func Consumers(id string) int { return defaultRegistry.Consumers(id) }

// Reset destroys every resource in the default registry and empties
// it. Destructive; intended for use between test cases.
func Reset() { defaultRegistry.Reset() }

// Subscribe registers callback against the named resource in the
// default registry, returning a token for Unsubscribe. It is a no-op
// (returning the zero token) if the resource does not exist.
func Subscribe(id string, callback Subscriber) uuid.UUID {
	res, ok := defaultRegistry.Resources()[id]
	if !ok {
		return uuid.UUID{}
	}
	return res.Subscribe(callback)
}

// Unsubscribe removes a subscriber from the named resource in the
// default registry.
func Unsubscribe(id string, token uuid.UUID) {
	res, ok := defaultRegistry.Resources()[id]
	if !ok {
		return
	}
	res.Unsubscribe(token)
}
