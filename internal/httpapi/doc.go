// Package httpapi exposes the planner over a small JSON HTTP surface.
//
// Routes:
//
//	POST /v1/plan/today    plan the current day from stored sources
//	POST /v1/plan/preview  plan stored sources without writing back
//	POST /v1/plan/items    plan an explicit item list
//	GET  /healthz          liveness probe
//	GET  /metrics          Prometheus exposition
//
// Handlers stay thin: decode, validate, call the planner, encode.
package httpapi
