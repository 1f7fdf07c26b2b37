// Package api implements the HTTP REST API for Railgate Core.
//
// This package provides:
//   - REST endpoints for power domain status, transitions, and diagnostics
//   - Transition history and audit log queries
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between fleet tooling and the platform registry.
// Every mutating endpoint runs a registry transition and records an
// audit entry with source "api". State fan-out (MQTT, history, metrics)
// happens through the registry's observers, not here.
//
// # Endpoints
//
//	GET  /api/v1/health
//	GET  /api/v1/stats
//	GET  /api/v1/domains
//	GET  /api/v1/domains/{name}
//	POST /api/v1/domains/{name}/enable
//	POST /api/v1/domains/{name}/disable
//	PUT  /api/v1/domains/{name}/mode
//	GET  /api/v1/domains/{name}/registers
//	GET  /api/v1/domains/{name}/history
//	GET  /api/v1/audit
package api
