// Package observe provides the observability primitives of API calls:
// OpenTelemetry tracing and metrics plus a JSON structured logger.
//
// It is a pure instrumentation library. The api package wraps every leaf
// invocation with Middleware, which opens one span, records the call metrics
// and writes one log line per call. Cache and throttle outcomes are recorded
// through the same Middleware.
package observe
