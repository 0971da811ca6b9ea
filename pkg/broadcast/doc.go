// Package broadcast fans typed messages out to many subscribers.
//
// MemoryBroadcaster serves a single process; RedisBroadcaster relays messages
// through Redis pub/sub so every replica's subscribers see them. Both drop
// messages for subscribers whose buffer is full rather than blocking the
// publisher: fan-out here is advisory (UI sync, notices) and the persisted
// state stays the source of truth.
package broadcast
