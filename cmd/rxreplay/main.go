// Command rxreplay replays pcap captures through the receive path.
//
// Every configured device reads its frames from a capture file. The stack
// polls the devices and dispatches the frames to an IPv4 handler that checks
// them against the statically configured addresses.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"netcore/addrconf/static"
	"netcore/config"
	"netcore/netdev"
	"netcore/netdev/pcapdev"
	"netcore/network"
	"netcore/network/proto"
	"netcore/process"
	"netcore/stack"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "netcore.toml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	clk := clock.New()
	reg := prometheus.NewRegistry()

	protocols := network.NewRegistry()
	devices := netdev.NewRegistry(protocols, logger)

	sink := newIPv4Sink(devices, logger)
	if err := protocols.Register(proto.IPv4, sink); err != nil {
		return err
	}
	protocols.Seal()

	st, err := stack.New(protocols, devices, logger, stack.Options{
		Registerer:    reg,
		QueueCapacity: cfg.QueueCapacity,
	})
	if err != nil {
		return err
	}

	conf := static.New(devices, cfg.Bindings(), logger)
	devices.SetAddrConfigurator(conf)

	var replays []*pcapdev.Device
	for _, dc := range cfg.Devices {
		f, err := os.Open(dc.Capture)
		if err != nil {
			return errors.Wrapf(err, "opening capture of %s", dc.Name)
		}
		defer f.Close()

		dev, err := pcapdev.New(dc.Name, bufio.NewReader(f), clk, pcapdev.Options{
			PollBudget: dc.PollBudget,
			Paced:      dc.Paced,
		})
		if err != nil {
			return errors.Wrapf(err, "opening capture of %s", dc.Name)
		}

		if _, err := st.RegisterDevice(dev); err != nil {
			return err
		}
		if err := conf.Configure(dev); err != nil {
			return err
		}
		replays = append(replays, dev)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err.Error())
			}
		}()
		defer srv.Close()
	}

	sched := process.New(clk, process.Options{Interval: cfg.StepInterval})
	st.Start(sched)
	sched.Schedule(&replayWatch{replays: replays, stack: st, done: stop})

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	for _, dev := range replays {
		if err := st.UnregisterDevice(dev); err != nil {
			logger.Warn("unregistering device", "device", dev.Name(), "error", err.Error())
		}
		if err := dev.Err(); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("replay stopped early", "device", dev.Name(), "error", err.Error())
		}
	}
	if n := st.Flush(); n > 0 {
		logger.Info("dropped queued packets on shutdown", "count", n)
	}

	logger.Info("replay finished", "delivered", sink.delivered, "foreign", sink.foreign)
	return nil
}

// replayWatch ends the run once every capture is exhausted
// and the receive queue has drained.
type replayWatch struct {
	replays []*pcapdev.Device
	stack   *stack.Stack
	done    func()
}

func (w *replayWatch) Step(s *process.Scheduler) {
	for _, dev := range w.replays {
		if !dev.Done() {
			s.Schedule(w)
			return
		}
	}
	if w.stack.Len() > 0 {
		s.Schedule(w)
		return
	}
	w.done()
}
