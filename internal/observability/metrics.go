package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	handlesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifetime",
			Subsystem: "handles",
			Name:      "created_total",
			Help:      "Handles created, by how they were created.",
		},
		[]string{"kind"},
	)
	handlesReleased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifetime",
			Subsystem: "handles",
			Name:      "released_total",
			Help:      "Handles dropped or moved from.",
		},
	)
	handlesLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lifetime",
			Subsystem: "handles",
			Name:      "live",
			Help:      "Handles currently registered in some alias set.",
		},
	)
	groupsReleased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifetime",
			Subsystem: "groups",
			Name:      "released_total",
			Help:      "Value groups whose last handle was released.",
		},
	)
	ownershipMoves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifetime",
			Subsystem: "ownership",
			Name:      "moves_total",
			Help:      "Successful ownership transfers.",
		},
	)
	violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifetime",
			Name:      "violations_total",
			Help:      "Ownership and borrowing violations, by kind.",
		},
		[]string{"kind"},
	)
)

// Handle creation kinds used as the "kind" label.
const (
	KindFrom          = "from"
	KindBorrow        = "borrow"
	KindBorrowMutable = "borrow_mut"
	KindClone         = "clone"
	KindMove          = "move"
)

// RegisterMetrics registers the collectors with reg, or with the default
// registerer when reg is nil. Recording never registers anything; until
// this is called the counters are kept but not exported. Registering the
// same collectors twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{handlesCreated, handlesReleased, handlesLive, groupsReleased, ownershipMoves, violations}
}

// RecordHandleCreated counts a new handle.
func RecordHandleCreated(kind string) {
	handlesCreated.WithLabelValues(kind).Inc()
	handlesLive.Inc()
}

// RecordHandleReleased counts a handle leaving its alias set.
func RecordHandleReleased() {
	handlesReleased.Inc()
	handlesLive.Dec()
}

// RecordGroupReleased counts a group whose value was released.
func RecordGroupReleased() {
	groupsReleased.Inc()
}

// RecordMove counts an ownership transfer.
func RecordMove() {
	ownershipMoves.Inc()
}

// RecordViolation counts a violation of the given kind.
func RecordViolation(kind string) {
	violations.WithLabelValues(kind).Inc()
}
