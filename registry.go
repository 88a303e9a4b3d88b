package guardrail

import (
	"runtime"
	"sync"
	"weak"
)

// Registry is the process-wide identifier -> ProtectedResource map.
// register is linearisable per identifier: concurrent callers either
// create exactly one resource or receive the already-registered one.
// Consumers are tracked by weak reference so garbage collection of a
// client removes it from consumers[id] without the registry pinning it.
type Registry struct {
	mu        sync.Mutex
	resources map[string]*ProtectedResource
	consumers map[string]map[*consumerHandle]struct{}
}

// consumerHandle is the registry's entry for one consumer, kept in
// consumers[id]. The client itself is never referenced by the
// registry; a runtime.AddCleanup hook on the client, carrying only a
// weak.Pointer to the handle, removes the entry once the client is
// collected.
type consumerHandle struct {
	id string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		resources: make(map[string]*ProtectedResource),
		consumers: make(map[string]map[*consumerHandle]struct{}),
	}
}

// Register returns the resource for id, creating it with opts on
// first call. A second concurrent or subsequent call with the same id
// returns the existing resource; opts are ignored on that path. No
// consumer is tracked — use RegisterConsumer for adapters that want
// weak-referenced lifecycle tracking.
func (reg *Registry) Register(id string, opts Options) *ProtectedResource {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.getOrCreateLocked(id, opts)
}

func (reg *Registry) getOrCreateLocked(id string, opts Options) *ProtectedResource {
	res, ok := reg.resources[id]
	if !ok {
		res = newResource(id, opts)
		reg.resources[id] = res
		reg.consumers[id] = make(map[*consumerHandle]struct{})
	}
	return res
}

// RegisterConsumer is Register plus weak-referenced consumer tracking
// for client: the registry never references client, only a handle
// whose removal is tied to client's lifetime, so once client becomes
// unreachable and is
// collected, it is automatically dropped from Consumers(id) without an
// explicit Unregister call. Adapters using dynamic per-call options
// should call Register instead — they must never be tracked as
// consumers (spec.md §3, "Lifecycles").
//
// runtime.AddCleanup requires a concrete pointer type for its target,
// which is why this is a free function parameterised on C rather than
// a method taking client any.
func RegisterConsumer[C any](reg *Registry, id string, opts Options, client *C) *ProtectedResource {
	reg.mu.Lock()
	res := reg.getOrCreateLocked(id, opts)
	addConsumerLocked(reg, id, client)
	reg.mu.Unlock()
	return res
}

// addConsumerLocked is a free function, not a method, because
// runtime.AddCleanup requires its target argument to have a concrete
// pointer type at the call site — a method parameter typed any would
// erase that and make C uninferable.
func addConsumerLocked[C any](reg *Registry, id string, client *C) {
	handle := &consumerHandle{id: id}
	reg.consumers[id][handle] = struct{}{}

	weakHandle := weak.Make(handle)
	runtime.AddCleanup(client, func(h weak.Pointer[consumerHandle]) {
		reg.dropConsumer(id, h)
	}, weakHandle)
}

// dropConsumer removes a consumer handle once its owning client has
// been garbage collected. The weak pointer is passed through so the
// cleanup never pins the handle (or, transitively, the client) alive.
func (reg *Registry) dropConsumer(id string, h weak.Pointer[consumerHandle]) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	set, ok := reg.consumers[id]
	if !ok {
		return
	}
	target := h.Value()
	for handle := range set {
		if handle == target {
			delete(set, handle)
			return
		}
	}
}

// Unregister removes id's entry and destroys its resource (tearing
// down the bulkhead and breaker). A subsequent Register with the same
// id yields a different resource object.
func (reg *Registry) Unregister(id string) {
	reg.mu.Lock()
	res, ok := reg.resources[id]
	if ok {
		delete(reg.resources, id)
		delete(reg.consumers, id)
	}
	reg.mu.Unlock()

	if ok {
		res.Destroy()
	}
}

// UnregisterAll unregisters every resource, executed under the
// registry's write lock for the enumeration step.
func (reg *Registry) UnregisterAll() {
	reg.mu.Lock()
	ids := make([]string, 0, len(reg.resources))
	for id := range reg.resources {
		ids = append(ids, id)
	}
	reg.mu.Unlock()

	for _, id := range ids {
		reg.Unregister(id)
	}
}

// Resources returns a snapshot of the identifier -> resource map.
func (reg *Registry) Resources() map[string]*ProtectedResource {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make(map[string]*ProtectedResource, len(reg.resources))
	for k, v := range reg.resources {
		out[k] = v
	}
	return out
}

// Consumers returns the number of live (not yet garbage-collected)
// consumers registered against id.
func (reg *Registry) Consumers(id string) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.consumers[id])
}

// Reset destroys every resource and empties the registry. Destructive;
// intended for use between test cases, per spec.md §6's `reset!`.
func (reg *Registry) Reset() {
	reg.UnregisterAll()
}
