// Package static assigns fixed, configured addresses to devices.
package static

import (
	"bytes"
	"log/slog"
	"net"
	"sync"

	"netcore/netdev"
	"netcore/network/proto"

	"github.com/pkg/errors"
)

// Binding is one configured address for the device called Device.
type Binding struct {
	Device  string
	Proto   proto.Number
	Addr    []byte
	Mask    []byte
	Gateway []byte // nil if there is none
}

// Route is what a bound address contributes to routing decisions.
type Route struct {
	Proto   proto.Number
	Addr    []byte
	Mask    []byte
	Gateway []byte
}

type Configurator struct {
	registry *netdev.Registry
	bindings []Binding
	logger   *slog.Logger

	mu     sync.Mutex
	routes map[netdev.Device][]Route
}

var _ netdev.AddrConfigurator = (*Configurator)(nil)

func New(registry *netdev.Registry, bindings []Binding, logger *slog.Logger) *Configurator {
	return &Configurator{
		registry: registry,
		bindings: bindings,
		logger:   logger,
		routes:   make(map[netdev.Device][]Route),
	}
}

// Configure binds every address configured for dev.
// dev must already be registered.
func (c *Configurator) Configure(dev netdev.Device) error {
	for _, b := range c.bindings {
		if b.Device != dev.Name() {
			continue
		}
		if err := c.Bind(dev, b.Proto, b.Addr, b.Mask, b.Gateway); err != nil {
			return errors.Wrapf(err, "configuring %s", dev.Name())
		}
	}
	return nil
}

func (c *Configurator) Bind(dev netdev.Device, n proto.Number, addr, mask, gateway []byte) error {
	if mask != nil && len(mask) != len(addr) {
		return errors.Errorf("mask length %d does not match address length %d", len(mask), len(addr))
	}
	if gateway != nil && len(gateway) != len(addr) {
		return errors.Errorf("gateway length %d does not match address length %d", len(gateway), len(addr))
	}

	if err := c.registry.Bind(dev, n, addr); err != nil {
		return err
	}

	c.mu.Lock()
	c.routes[dev] = append(c.routes[dev], Route{
		Proto:   n,
		Addr:    bytes.Clone(addr),
		Mask:    bytes.Clone(mask),
		Gateway: bytes.Clone(gateway),
	})
	c.mu.Unlock()

	c.logger.Info("bound address", "device", dev.Name(), "proto", n, "addr", net.IP(addr))
	return nil
}

func (c *Configurator) Unbind(dev netdev.Device) error {
	c.mu.Lock()
	delete(c.routes, dev)
	c.mu.Unlock()

	if err := c.registry.Unbind(dev); err != nil {
		return err
	}

	c.logger.Info("released addresses", "device", dev.Name())
	return nil
}

// Routes returns the routes of dev in the order they were bound.
func (c *Configurator) Routes(dev netdev.Device) []Route {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Route, len(c.routes[dev]))
	copy(out, c.routes[dev])
	return out
}
