// Package store provides the SQLite-backed local cache.
//
// The cache is a durable key-value table of JSON documents scoped to one
// device profile. It holds three kinds of entries:
//   - listings:unsynced   listings that exist only on this device
//   - favorites:<userId>  a user's favorite listing ids
//   - locations:recent    recently used location strings
//
// # Read-modify-write
//
// Composite updates (toggling a favorite, editing one local listing) run in a
// single transaction through update. The connection pool is capped at one
// connection, so two updates can never interleave and lose a write.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
