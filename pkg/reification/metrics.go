package reification

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts strategy operations and the triples skipped while reading
// statements back.
type Metrics struct {
	operations *prometheus.CounterVec
	skipped    *prometheus.CounterVec
}

// NewMetrics creates the reification collectors and registers them with reg.
// Collectors already registered by another Metrics are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbgraph",
			Subsystem: "reification",
			Name:      "operations_total",
			Help:      "Reification operations by mode, operation and outcome.",
		}, []string{"mode", "operation", "outcome"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbgraph",
			Subsystem: "reification",
			Name:      "skipped_triples_total",
			Help:      "Triples left out of listed statements, by reason.",
		}, []string{"mode", "reason"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.operations, err = register(reg, m.operations); err != nil {
		return nil, err
	}
	if m.skipped, err = register(reg, m.skipped); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

const (
	outcomeOK          = "ok"
	outcomeError       = "error"
	outcomeUnsupported = "unsupported"

	skipNullValue       = "null_value"
	skipBlankNode       = "blank_node"
	skipUndecodable     = "undecodable_value"
	skipUnknownProperty = "unknown_property"
	skipQueryFailed     = "query_failed"
)

func (m *Metrics) observe(mode, operation string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case errors.Is(err, ErrUnsupportedOperation):
		outcome = outcomeUnsupported
	case err != nil:
		outcome = outcomeError
	}
	m.operations.WithLabelValues(mode, operation, outcome).Inc()
}

func (m *Metrics) skip(mode, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(mode, reason).Inc()
}
