// Package observability bundles the gateway's logging, metrics, health and
// tracing plumbing. Logging is structured JSON on slog, metrics are
// Prometheus, tracing is OTLP and off by default.
package observability
