package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes render cache and host activity as Prometheus metrics.
type Recorder struct {
	reg           *prom.Registry
	renders       *prom.CounterVec
	mounts        prom.Counter
	pagesLoaded   prom.Gauge
	reloads       *prom.CounterVec
	reloadSeconds prom.Histogram
}

// NewRecorder constructs and registers the metrics on reg, creating a fresh
// registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		renders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpage",
			Name:      "renders_total",
			Help:      "Page renders by cache outcome",
		}, []string{"result"}),
		mounts: prom.NewCounter(prom.CounterOpts{
			Namespace: "docpage",
			Name:      "instance_mounts_total",
			Help:      "Page instances mounted",
		}),
		pagesLoaded: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docpage",
			Name:      "pages_loaded",
			Help:      "Page modules currently loaded",
		}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpage",
			Name:      "reloads_total",
			Help:      "Bundle reloads by outcome",
		}, []string{"outcome"}),
		reloadSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docpage",
			Name:      "reload_duration_seconds",
			Help:      "Duration of bundle reloads",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(r.renders, r.mounts, r.pagesLoaded, r.reloads, r.reloadSeconds)
	return r
}

// ObserveRender counts a render as a cache hit or miss.
func (r *Recorder) ObserveRender(_ string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.renders.WithLabelValues(result).Inc()
}

// IncMount counts a new page instance.
func (r *Recorder) IncMount() {
	if r == nil {
		return
	}
	r.mounts.Inc()
}

// SetPagesLoaded records the number of loaded modules.
func (r *Recorder) SetPagesLoaded(n int) {
	if r == nil {
		return
	}
	r.pagesLoaded.Set(float64(n))
}

// ObserveReload records a reload and its outcome.
func (r *Recorder) ObserveReload(d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.reloads.WithLabelValues(outcome).Inc()
	r.reloadSeconds.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
