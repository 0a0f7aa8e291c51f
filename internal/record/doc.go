// Package record provides the value model for server-supplied table records.
//
// Records arrive from the remote data source as loosely typed JSON documents.
// This package turns them into a sealed Value tree so the rest of the engine
// can resolve paths, merge partial hydration results and compare outputs
// without reflecting over interface{} maps.
//
// Key design constraints:
//   - Empty (missing path) is distinct from Null (server sent null)
//   - Integers stay Int, fractional numbers become Float
//   - Records are never mutated in place; Merge returns a new Record
//   - All other internal packages import record; record imports nothing internal
package record
