// Package store provides SQLite-backed run history for snipcheck.
//
// Each run of a registry is stored as one row in runs plus one row per
// verdict in results, written in a single transaction.
//
// # Ordering
//
//   - Runs are ordered by seq (INTEGER PRIMARY KEY AUTOINCREMENT), never by
//     timestamp, so listings are stable when clocks are coarse or skewed.
//   - Results are ordered by position, which is registry order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run IDs come from an IDGenerator: UUIDv7 in production, sequential IDs in
// tests.
package store
