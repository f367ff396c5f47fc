// Package metrics tracks request counters for the lifetime of a server.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ServeMetrics is safe for concurrent use by request goroutines.
type ServeMetrics struct {
	StartTime time.Time

	requests     atomic.Int64
	success      atomic.Int64 // 1xx-3xx
	clientErrors atomic.Int64 // 4xx
	serverErrors atomic.Int64 // 5xx
	bytesSent    atomic.Int64
}

// NewServeMetrics creates a new metrics instance.
func NewServeMetrics() *ServeMetrics {
	return &ServeMetrics{
		StartTime: time.Now(),
	}
}

// Record counts one finished response.
func (m *ServeMetrics) Record(status int, bytes int64) {
	m.requests.Add(1)
	m.bytesSent.Add(bytes)
	switch {
	case status >= 500:
		m.serverErrors.Add(1)
	case status >= 400:
		m.clientErrors.Add(1)
	default:
		m.success.Add(1)
	}
}

// Requests returns the number of recorded responses.
func (m *ServeMetrics) Requests() int64 { return m.requests.Load() }

// ClientErrors returns the number of 4xx responses.
func (m *ServeMetrics) ClientErrors() int64 { return m.clientErrors.Load() }

// ServerErrors returns the number of 5xx responses.
func (m *ServeMetrics) ServerErrors() int64 { return m.serverErrors.Load() }

// BytesSent returns the total body bytes written.
func (m *ServeMetrics) BytesSent() int64 { return m.bytesSent.Load() }

// Uptime returns the time since the metrics were created.
func (m *ServeMetrics) Uptime() time.Duration {
	return time.Since(m.StartTime)
}

// ErrorRate returns the percentage of responses with a 4xx or 5xx status.
func (m *ServeMetrics) ErrorRate() float64 {
	total := m.requests.Load()
	if total == 0 {
		return 0
	}
	return float64(m.clientErrors.Load()+m.serverErrors.Load()) / float64(total) * 100
}

// String returns a single-line summary.
func (m *ServeMetrics) String() string {
	return fmt.Sprintf("📊 Served %d requests in %v (%s sent, %d client errors, %d server errors)",
		m.Requests(),
		m.Uptime().Round(time.Second),
		formatBytes(m.BytesSent()),
		m.ClientErrors(),
		m.ServerErrors(),
	)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
