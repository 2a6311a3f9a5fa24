// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/picoha.go/pkg/framework"
	"github.com/robotalks/picoha.go/pkg/l0/ha"
	"github.com/robotalks/picoha.go/pkg/l0/slip"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Pipeline counts device pipeline traffic. It implements device.Observer.
type Pipeline struct {
	FramesReceived *prometheus.CounterVec // labels: code
	FramesDropped  *prometheus.CounterVec // labels: reason
	ResponsesSent  *prometheus.CounterVec // labels: code
}

// NewPipeline registers and returns the pipeline metrics.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picoha",
			Name:      "frames_received_total",
			Help:      "Complete frames received, by raw code.",
		}, []string{"code"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picoha",
			Name:      "frames_dropped_total",
			Help:      "Input discarded by SLIP framing errors.",
		}, []string{"reason"}),
		ResponsesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picoha",
			Name:      "responses_sent_total",
			Help:      "Responses written, by code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.FramesReceived, m.FramesDropped, m.ResponsesSent)
	return m
}

// FrameReceived implements device.Observer.
func (m *Pipeline) FrameReceived(raw []byte) {
	label := "short"
	if len(raw) >= ha.CodeSize {
		label = ha.Code(uint16(raw[0])<<8 | uint16(raw[1])).String()
	}
	m.FramesReceived.WithLabelValues(label).Inc()
}

// FrameDropped implements device.Observer.
func (m *Pipeline) FrameDropped(err error) {
	reason := "other"
	switch {
	case errors.Is(err, slip.ErrBadEsc):
		reason = "bad_esc"
	case errors.Is(err, slip.ErrBufferFull):
		reason = "buffer_full"
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// ResponseSent implements device.Observer.
func (m *Pipeline) ResponseSent(code ha.Code) {
	m.ResponsesSent.WithLabelValues(code.String()).Inc()
}

// Server serves /metrics in the background.
type Server struct {
	Addr     string
	Registry *prometheus.Registry
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(s.Registry))
	server := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("metrics listening on %s", s.Addr)
	return framework.RunWithContextCloser(ctx, server, func() error {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
