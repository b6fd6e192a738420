// Package node serves the in-memory development chain over JSON-RPC 2.0 on
// HTTP, so that tools pointed at the localhost network can talk to it. Besides
// the RPC endpoint it exposes /health and Prometheus metrics on /metrics.
package node
