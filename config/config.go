// Package config loads the TOML configuration of the stack.
package config

import (
	"log/slog"
	"strings"
	"time"

	"netcore/addrconf/static"
	ipv4 "netcore/network/ip/v4"
	"netcore/network/proto"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Config struct {
	LogLevel      slog.Level
	// StepInterval is the pause between scheduler turns.
	StepInterval  time.Duration
	MetricsAddr   string
	QueueCapacity uint

	Devices []Device
}

type Device struct {
	Name    string
	Capture string

	Paced      bool
	PollBudget uint

	// Address is unset when the device gets no static address.
	Address *Address
}

type Address struct {
	Addr    ipv4.Addr
	Netmask ipv4.Addr
	Gateway *ipv4.Addr
}

func Default() Config {
	return Config{
		LogLevel:      slog.LevelInfo,
		StepInterval:  time.Millisecond,
		QueueCapacity: 64,
	}
}

type fileConfig struct {
	LogLevel      string       `toml:"log_level"`
	StepInterval  string       `toml:"step_interval"`
	MetricsAddr   string       `toml:"metrics_addr"`
	QueueCapacity uint         `toml:"queue_capacity"`
	Devices       []fileDevice `toml:"device"`
}

type fileDevice struct {
	Name       string `toml:"name"`
	Capture    string `toml:"capture"`
	Paced      bool   `toml:"paced"`
	PollBudget uint   `toml:"poll_budget"`
	Address    string `toml:"address"`
	Netmask    string `toml:"netmask"`
	Gateway    string `toml:"gateway"`
}

func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return build(raw, meta)
}

func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return build(raw, meta)
}

func build(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config key %q", undecoded[0].String())
	}

	cfg := Default()

	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, errors.Wrap(err, "parse log_level")
		}
	}

	if meta.IsDefined("step_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StepInterval))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse step_interval")
		}
		if d < 0 {
			return Config{}, errors.Errorf("step_interval must not be negative, got %s", d)
		}
		cfg.StepInterval = d
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("queue_capacity") {
		cfg.QueueCapacity = raw.QueueCapacity
	}

	seen := make(map[string]struct{}, len(raw.Devices))
	for idx, rd := range raw.Devices {
		dev, err := buildDevice(rd)
		if err != nil {
			return Config{}, errors.Wrapf(err, "device #%d", idx)
		}
		if _, dup := seen[dev.Name]; dup {
			return Config{}, errors.Errorf("device %q configured twice", dev.Name)
		}
		seen[dev.Name] = struct{}{}
		cfg.Devices = append(cfg.Devices, dev)
	}

	return cfg, nil
}

func buildDevice(rd fileDevice) (Device, error) {
	dev := Device{
		Name:       strings.TrimSpace(rd.Name),
		Capture:    strings.TrimSpace(rd.Capture),
		Paced:      rd.Paced,
		PollBudget: rd.PollBudget,
	}
	if dev.Name == "" {
		return Device{}, errors.New("name is required")
	}
	if dev.Capture == "" {
		return Device{}, errors.Errorf("%s: capture is required", dev.Name)
	}

	address := strings.TrimSpace(rd.Address)
	if address == "" {
		if rd.Netmask != "" || rd.Gateway != "" {
			return Device{}, errors.Errorf("%s: netmask and gateway need an address", dev.Name)
		}
		return dev, nil
	}

	addr, err := ipv4.ParseAddr(address)
	if err != nil {
		return Device{}, errors.Wrapf(err, "%s: parse address", dev.Name)
	}

	// A missing netmask means a host route.
	mask := ipv4.Broadcast
	if s := strings.TrimSpace(rd.Netmask); s != "" {
		if mask, err = ipv4.ParseMask(s); err != nil {
			return Device{}, errors.Wrapf(err, "%s: parse netmask", dev.Name)
		}
	}

	dev.Address = &Address{Addr: addr, Netmask: mask}

	if s := strings.TrimSpace(rd.Gateway); s != "" {
		gw, err := ipv4.ParseAddr(s)
		if err != nil {
			return Device{}, errors.Wrapf(err, "%s: parse gateway", dev.Name)
		}
		dev.Address.Gateway = &gw
	}

	return dev, nil
}

// Bindings returns the static addresses to hand to the address configurator.
func (c Config) Bindings() []static.Binding {
	var out []static.Binding
	for _, dev := range c.Devices {
		if dev.Address == nil {
			continue
		}

		b := static.Binding{
			Device: dev.Name,
			Proto:  proto.IPv4,
			Addr:   dev.Address.Addr.Raw(),
			Mask:   dev.Address.Netmask.Raw(),
		}
		if dev.Address.Gateway != nil {
			b.Gateway = dev.Address.Gateway.Raw()
		}
		out = append(out, b)
	}
	return out
}
