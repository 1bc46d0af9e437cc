// Package app provides the application service layer.
//
// Orchestrates use cases: posting a message (insert, then fan-out), listing recent messages,
// and user management. Sits between the HTTP/WebSocket adapters and domain repositories.
// Depends on domain interfaces, not concrete implementations.
package app
