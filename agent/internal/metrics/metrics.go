package metrics

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Encode failure reasons.
const (
	ReasonUnsupported = "unsupported"
	ReasonInvalid     = "invalid"
	ReasonPanic       = "panic"
)

// Delivery outcomes.
const (
	OutcomeDelivered  = "delivered"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
	OutcomeUnresolved = "unresolved"
)

// Metrics holds the agent's collectors.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived   *prometheus.CounterVec
	EncodeErrors     *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	InFlight         prometheus.Gauge
	DeliveryDuration prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcshipper_events_received_total",
				Help: "GC events handed to the pipeline, by event kind",
			},
			[]string{"event"},
		),
		EncodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcshipper_encode_errors_total",
				Help: "Events abandoned because no document could be built",
			},
			[]string{"reason"},
		),
		Deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcshipper_deliveries_total",
				Help: "Completed delivery attempts, by outcome",
			},
			[]string{"outcome"},
		),
		InFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "gcshipper_deliveries_in_flight",
				Help: "Deliveries started but not yet completed",
			},
		),
		DeliveryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gcshipper_delivery_duration_seconds",
				Help:    "Time from request start to response or failure",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Handler serves the registry for Prometheus scrapes.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteText writes every metric family in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	return writeFamilies(w, mfs)
}

func writeFamilies(w io.Writer, mfs []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
