// Package broadcast implements the live-messages gateway using the actor pattern.
//
// One goroutine owns the set of open connections and serves commands from a channel:
// register, unregister, send-to-one and broadcast-to-all. Broadcasting is a plain loop
// over that set. Each connection has its own writer goroutine with a bounded buffer;
// a connection whose buffer is full is evicted rather than slowing everyone else.
package broadcast
