// Package metrics wires the Prometheus counters and histogram named in
// spec §6 ("Metrics export"). citeq has no long-lived server process, so
// metrics are written to a text-exposition file on demand
// (--metrics-out) rather than served over HTTP — the registration
// pattern itself (NewCounter/NewHistogramVec, a private Registry) is
// grounded on the teacher's telemetry package.
package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry holds the metrics for one process run. Not a global: each
// CLI invocation owns its own registry so concurrent test runs never
// collide on Prometheus's default global registerer.
type Registry struct {
	registry *prometheus.Registry

	RetrievalRoundsTotal prometheus.Counter
	RefusalsTotal        *prometheus.CounterVec
	LoopStepDuration     *prometheus.HistogramVec
}

// New constructs a fresh Registry with all citeq_* series registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RetrievalRoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citeq_retrieval_rounds_total",
			Help: "Total number of retrieval rounds executed by the control loop.",
		}),
		RefusalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citeq_refusals_total",
			Help: "Total number of refused answers, labeled by refusal_reason.",
		}, []string{"refusal_reason"}),
		LoopStepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citeq_loop_step_duration_seconds",
			Help:    "Wall-clock duration of each control loop node, labeled by node.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node"}),
	}

	reg.MustRegister(r.RetrievalRoundsTotal, r.RefusalsTotal, r.LoopStepDuration)
	return r
}

// WriteTextFile dumps the current registry in Prometheus text exposition
// format to path, for --metrics-out on agent-ask/eval-run.
func (r *Registry) WriteTextFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
