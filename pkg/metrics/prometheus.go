package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	compileDuration *prom.HistogramVec
	pagesWritten    *prom.CounterVec
	redirects       prom.Counter
	renderFailures  *prom.CounterVec
	draftsSkipped   prom.Counter
	watchEvents     *prom.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers the stakx metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		compileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "stakx",
			Name:      "compile_duration_seconds",
			Help:      "Duration of a single PageView compilation",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		pagesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stakx",
			Name:      "pages_written_total",
			Help:      "Output files written by PageView kind",
		}, []string{"kind"}),
		redirects: prom.NewCounter(prom.CounterOpts{
			Namespace: "stakx",
			Name:      "redirects_written_total",
			Help:      "Redirect pages written",
		}),
		renderFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stakx",
			Name:      "render_failures_total",
			Help:      "Template construction or render failures by PageView kind",
		}, []string{"kind"}),
		draftsSkipped: prom.NewCounter(prom.CounterOpts{
			Namespace: "stakx",
			Name:      "drafts_skipped_total",
			Help:      "Collection items skipped because they are drafts",
		}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stakx",
			Name:      "watch_events_total",
			Help:      "File change notifications by routed action",
		}, []string{"action"}),
	}
	reg.MustRegister(pr.compileDuration, pr.pagesWritten, pr.redirects, pr.renderFailures, pr.draftsSkipped, pr.watchEvents)
	return pr
}

func (p *PrometheusRecorder) ObserveCompileDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.compileDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPagesWritten(kind string) {
	if p == nil {
		return
	}
	p.pagesWritten.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncRedirectsWritten() {
	if p == nil {
		return
	}
	p.redirects.Inc()
}

func (p *PrometheusRecorder) IncRenderFailure(kind string) {
	if p == nil {
		return
	}
	p.renderFailures.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncDraftsSkipped() {
	if p == nil {
		return
	}
	p.draftsSkipped.Inc()
}

func (p *PrometheusRecorder) IncWatchEvent(action string) {
	if p == nil {
		return
	}
	p.watchEvents.WithLabelValues(action).Inc()
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
