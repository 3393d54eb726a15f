package network

import (
	"slices"
	"sync"

	"netcore/network/proto"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateProtocol = errors.New("protocol already registered")
	ErrProtocolNotFound  = errors.New("protocol not registered")
	ErrRegistrySealed    = errors.New("protocol registry is sealed")
)

// Registry maps network-layer protocol numbers to their handlers.
// It is populated while the stack initializes and read-only afterward.
type Registry struct {
	mu       sync.RWMutex
	handlers map[proto.Number]Handler
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[proto.Number]Handler)}
}

// Register binds h to n. An existing binding is never replaced.
func (r *Registry) Register(n proto.Number, h Handler) error {
	if h == nil {
		return errors.Errorf("nil handler for protocol %s", n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Wrapf(ErrRegistrySealed, "registering %s", n)
	}
	if _, found := r.handlers[n]; found {
		return errors.Wrapf(ErrDuplicateProtocol, "registering %s", n)
	}

	r.handlers[n] = h
	return nil
}

// Seal rejects any later Register call.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

func (r *Registry) Lookup(n proto.Number) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, found := r.handlers[n]
	if !found {
		return nil, errors.Wrapf(ErrProtocolNotFound, "looking up %s", n)
	}
	return h, nil
}

// Protocols returns the registered protocol numbers in ascending order.
func (r *Registry) Protocols() []proto.Number {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]proto.Number, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
