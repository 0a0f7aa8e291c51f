// Package store provides the SQLite database shared by the SQL record source
// and the SQLite preference store.
//
// # Tables
//
//   - records: one JSON document per (view_id, id), with seq holding import
//     order
//   - view_prefs: one JSON preference blob per view
//
// # Deterministic Reads
//
// Every record query orders by an explicit key and then by id, so equal
// keys never come back in storage order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema changes are tracked with PRAGMA user_version.
package store
