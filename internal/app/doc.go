// Package app wires configuration, storage, the scheduling engine and the
// outward surfaces (HTTP, autoplan, notifications) into one runnable unit.
package app
