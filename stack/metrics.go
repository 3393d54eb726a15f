package stack

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	dropUnsupported = "unsupported_protocol"
	dropMalformed   = "malformed_frame"
	dropNoLink      = "no_link_protocol"
	dropFlushed     = "flushed"
)

type metrics struct {
	received      prometheus.Counter
	dispatched    *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "rx",
			Name:      "received_total",
			Help:      "Frames handed to the receive queue by devices.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "rx",
			Name:      "dispatched_total",
			Help:      "Packets handed to a network-layer handler.",
		}, []string{"proto"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "rx",
			Name:      "dropped_total",
			Help:      "Packets dropped by the receive path.",
		}, []string{"reason"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "rx",
			Name:      "handler_errors_total",
			Help:      "Packets a network-layer handler failed to process.",
		}, []string{"proto"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcore",
			Subsystem: "rx",
			Name:      "queue_depth",
			Help:      "Packets waiting in the receive queue.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.received, m.dispatched, m.dropped, m.handlerErrors, m.queueDepth,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering rx metrics")
		}
	}
	return m, nil
}
