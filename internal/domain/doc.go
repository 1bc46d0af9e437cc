// Package domain defines the core types and the contracts between layers.
//
// users.go and messages.go hold entities and repository interfaces, events.go the tagged
// WebSocket payloads, errors.go the error taxonomy. No implementation code lives here.
package domain
