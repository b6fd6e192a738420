package node

import (
	"strconv"

	rpc "github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
)

const unknownMethod = "unknown"

// Metrics counts JSON-RPC calls by method and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics registers the node metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainbuild",
			Subsystem: "node",
			Name:      "rpc_requests_total",
			Help:      "Number of JSON-RPC requests handled, by method and result code (0 on success)",
		}, []string{"method", "code"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

// observe is a no-op on a nil receiver. Unknown methods share one label
// value to keep cardinality bounded.
func (m *Metrics) observe(method string, code rpc.ErrorCode) {
	if m == nil {
		return
	}
	if method == "" {
		method = unknownMethod
	}
	m.requests.WithLabelValues(method, strconv.Itoa(int(code))).Inc()
}
