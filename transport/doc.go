// Package transport is the request collaborator of API clients.
//
// It is intentionally thin: one HTTP round trip per Send, JSON decoding of
// the body for JSON APIs, and nothing else. Retries, throttling, caching and
// error-shape detection belong to the api package.
//
// Kinds:
//   - KindJSON: request bodies are JSON encoded and responses decoded.
//   - KindText: bodies are sent and returned as text.
package transport
