package netdev

import (
	"bytes"
	"log/slog"
	"slices"
	"sync"

	"netcore/network"
	"netcore/network/proto"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyRegistered = errors.New("device already registered")
	ErrNotRegistered     = errors.New("device not registered")
	ErrDeviceNotFound    = errors.New("no device owns address")
	ErrAddrLen           = errors.New("address length does not match protocol")
)

type entry struct {
	id    ID
	dev   Device
	addrs []Address
}

// Registry is the set of live devices, kept in registration order.
type Registry struct {
	protocols *network.Registry
	addrconf  AddrConfigurator
	logger    *slog.Logger

	mu      sync.RWMutex
	entries []*entry
	nextID  ID
}

func NewRegistry(protocols *network.Registry, logger *slog.Logger) *Registry {
	return &Registry{
		protocols: protocols,
		addrconf:  NopConfigurator{},
		logger:    logger,
		nextID:    1,
	}
}

// SetAddrConfigurator sets the collaborator asked to release addresses
// on Unregister.
func (r *Registry) SetAddrConfigurator(c AddrConfigurator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c == nil {
		c = NopConfigurator{}
	}
	r.addrconf = c
}

// Register adds dev to the live set. It binds no address.
func (r *Registry) Register(dev Device) (ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.findLocked(dev); e != nil {
		return 0, errors.Wrapf(ErrAlreadyRegistered, "registering %s", dev.Name())
	}

	e := &entry{id: r.nextID, dev: dev}
	r.nextID++
	r.entries = append(r.entries, e)

	r.logger.Info("registered device", "device", dev.Name(), "id", e.id)
	return e.id, nil
}

// Unregister asks the address configurator to release the addresses of dev,
// then removes dev. The device is removed even if releasing fails.
func (r *Registry) Unregister(dev Device) error {
	r.mu.RLock()
	e, conf := r.findLocked(dev), r.addrconf
	r.mu.RUnlock()

	if e == nil {
		return errors.Wrapf(ErrNotRegistered, "unregistering %s", dev.Name())
	}

	// Outside the lock: the configurator may call back into Unbind.
	unbindErr := conf.Unbind(dev)

	r.mu.Lock()
	r.entries = slices.DeleteFunc(r.entries, func(e *entry) bool { return e.dev == dev })
	r.mu.Unlock()

	r.logger.Info("unregistered device", "device", dev.Name(), "id", e.id)

	if unbindErr != nil {
		return errors.Wrapf(unbindErr, "releasing addresses of %s", dev.Name())
	}
	return nil
}

// Devices returns the live devices in registration order.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.dev
	}
	return out
}

func (r *Registry) Device(id ID) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.id == id {
			return e.dev, nil
		}
	}
	return nil, errors.Wrapf(ErrNotRegistered, "device id %d", id)
}

func (r *Registry) ID(dev Device) (ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.findLocked(dev); e != nil {
		return e.id, nil
	}
	return 0, errors.Wrapf(ErrNotRegistered, "device %s", dev.Name())
}

// Bind records addr as an address of dev under protocol n.
// The length of addr must match the protocol's address length.
func (r *Registry) Bind(dev Device, n proto.Number, addr []byte) error {
	h, err := r.protocols.Lookup(n)
	if err != nil {
		return errors.Wrapf(err, "binding address to %s", dev.Name())
	}
	if len(addr) != h.AddrLen() {
		return errors.Wrapf(ErrAddrLen, "%s wants %d bytes, got %d", n, h.AddrLen(), len(addr))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findLocked(dev)
	if e == nil {
		return errors.Wrapf(ErrNotRegistered, "binding address to %s", dev.Name())
	}

	if slices.ContainsFunc(e.addrs, func(a Address) bool {
		return a.Proto == n && bytes.Equal(a.Addr, addr)
	}) {
		return nil
	}

	e.addrs = append(e.addrs, Address{Proto: n, Addr: bytes.Clone(addr)})
	return nil
}

// Unbind removes every address of dev.
func (r *Registry) Unbind(dev Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findLocked(dev)
	if e == nil {
		return errors.Wrapf(ErrNotRegistered, "unbinding addresses of %s", dev.Name())
	}
	e.addrs = nil
	return nil
}

// Addresses returns a copy of the addresses bound to dev.
func (r *Registry) Addresses(dev Device) []Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.findLocked(dev)
	if e == nil {
		return nil
	}

	out := make([]Address, len(e.addrs))
	for i, a := range e.addrs {
		out[i] = Address{Proto: a.Proto, Addr: bytes.Clone(a.Addr)}
	}
	return out
}

// FindByAddress returns the device owning addr under protocol n.
// Only the protocol's address length is compared.
func (r *Registry) FindByAddress(n proto.Number, addr []byte) (Device, error) {
	h, err := r.protocols.Lookup(n)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceNotFound, "%s: %s", n, err.Error())
	}

	l := h.AddrLen()
	if len(addr) < l {
		return nil, errors.Wrapf(ErrDeviceNotFound, "%s address too short", n)
	}
	addr = addr[:l]

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		for _, a := range e.addrs {
			if a.Proto == n && bytes.Equal(a.Addr, addr) {
				return e.dev, nil
			}
		}
	}
	return nil, errors.Wrapf(ErrDeviceNotFound, "%s", n)
}

func (r *Registry) findLocked(dev Device) *entry {
	for _, e := range r.entries {
		if e.dev == dev {
			return e
		}
	}
	return nil
}
