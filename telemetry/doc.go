// Package telemetry provides OpenTelemetry tracing for the signal
// system: an opt-in OTLP provider gated on environment variables and a
// wrapper that opens a span per registry mutation and send without
// changing dispatch semantics.
package telemetry
