package http

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"pocketflow/internal/core"
)

// recordMetrics counts record operations by operation and outcome.
type recordMetrics struct {
	mu     sync.Mutex
	counts map[[2]string]int64
}

func newRecordMetrics() *recordMetrics {
	return &recordMetrics{counts: make(map[[2]string]int64)}
}

func (m *recordMetrics) observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, core.ErrValidation), errors.Is(err, errMalformedBody):
		outcome = "invalid"
	case errors.Is(err, core.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.mu.Lock()
	m.counts[[2]string{op, outcome}]++
	m.mu.Unlock()
}

func (m *recordMetrics) snapshot() map[[2]string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[[2]string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// handleMetrics renders counters in the Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	counter := func(name, help string, value int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
	}

	tm := s.tracer.GetMetrics()
	counter("pocketflow_http_requests_total", "HTTP requests served.", tm.TotalRequests)
	counter("pocketflow_http_client_errors_total", "HTTP responses with a 4xx status.", tm.ClientErrors)
	counter("pocketflow_http_server_errors_total", "HTTP responses with a 5xx status.", tm.ServerErrors)
	counter("pocketflow_http_request_duration_microseconds_total", "Cumulative request latency.", tm.TotalLatencyUs)

	rl := s.limiter.GetMetrics()
	counter("pocketflow_rate_limit_hits_total", "Requests rejected by the rate limiter.", rl.TotalHits)
	fmt.Fprintf(&b, "# HELP pocketflow_rate_limit_clients Clients tracked by the rate limiter.\n# TYPE pocketflow_rate_limit_clients gauge\npocketflow_rate_limit_clients %d\n", rl.ClientCount)

	sm := s.detector.GetMetrics()
	counter("pocketflow_suspicious_requests_total", "Requests matching attack patterns.", sm.SuspiciousRequests)
	counter("pocketflow_invalid_client_ip_total", "Unparseable client addresses.", sm.InvalidIPAttempts)

	ops := s.ops.snapshot()
	keys := make([][2]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	b.WriteString("# HELP pocketflow_record_operations_total Record operations by outcome.\n# TYPE pocketflow_record_operations_total counter\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "pocketflow_record_operations_total{operation=%q,outcome=%q} %d\n", k[0], k[1], ops[k])
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}
