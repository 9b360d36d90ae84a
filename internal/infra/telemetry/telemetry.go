package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
)

const namespace = "nbaiq"

// Register registers collector, returning the already registered collector of the same
// description instead when there is one.
func Register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}

// AuthMetrics records controller outcomes and the current session state.
type AuthMetrics struct {
	Operations *prometheus.CounterVec
	State      *prometheus.GaugeVec
}

var _ port.OperationObserver = (*AuthMetrics)(nil)

// NewAuthMetrics registers the auth collectors with reg (the default registerer when nil).
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	operations, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Auth controller operations partitioned by operation and outcome.",
	}, []string{"operation", "outcome"}))
	if err != nil {
		return nil, err
	}

	state, err := Register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_state",
		Help:      "1 for the session state currently held, 0 otherwise.",
	}, []string{"state"}))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{Operations: operations, State: state}, nil
}

// ObserveOperation implements port.OperationObserver.
func (m *AuthMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveState implements port.OperationObserver.
func (m *AuthMetrics) ObserveState(tag domain.SessionTag) {
	if m == nil {
		return
	}
	for _, candidate := range []domain.SessionTag{domain.SessionUnknown, domain.SessionAuthenticated, domain.SessionUnauthenticated} {
		value := 0.0
		if candidate == tag {
			value = 1
		}
		m.State.WithLabelValues(candidate.String()).Set(value)
	}
}
