// Package notify pushes plan summaries to external sinks.
//
// The service listens on the event bus for computed plans and forwards a
// short text rendering to each configured sink. Delivery is best-effort;
// a failing sink never blocks planning.
package notify
