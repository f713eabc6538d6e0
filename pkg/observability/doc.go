// Package observability provides logging, metrics, health checks, and
// graceful shutdown for the Listling service.
//
// Components:
//
//   - Logger: structured JSON logging backed by stdlib slog, with
//     field/error chaining and context propagation (request IDs).
//   - Metrics: Prometheus registry covering HTTP traffic, store operations,
//     token issuance/verification, and rate limiting.
//   - HealthChecker: liveness and readiness probes over the database and
//     the optional Redis backend, served on a separate port.
//   - ShutdownManager: signal handling and coordinated draining of HTTP
//     servers plus registered cleanup functions.
//   - InitOTel: optional OTLP trace export; disabled by default.
//
// Typical wiring happens once in cmd/listling and the resulting values are
// passed down explicitly; nothing in this package holds global state beyond
// the otel globals the SDK requires.
package observability
