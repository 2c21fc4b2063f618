package mcpserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_tool_calls_total",
		Help: "Total tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcp_tool_call_duration_seconds",
		Help:    "Tool execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcp_rpc_requests_total",
		Help: "Total JSON-RPC requests by method.",
	}, []string{"method"})
)

func observeToolCall(tool string, d time.Duration, failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}
