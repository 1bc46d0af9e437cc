// Package redis relays stored messages between server instances over Redis pub/sub.
package redis
