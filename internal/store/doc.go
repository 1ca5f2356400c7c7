// Package store keeps join tables in SQLite.
//
// Tables are created by LoadTable from dataset rows and read back as
// deferred queries of ir.IRObject rows, so a Store serves as a catalog for
// the in-memory engine and as the execution target of compiled SQL.
//
// # Value Mapping
//
// Each column gets a declared type from the values loaded into it:
//
//	ir.IRInt             INTEGER
//	ir.IRString          TEXT
//	ir.IRBool            BOOLEAN (stored as 0/1)
//	ir.IRArray/IRObject  JSON (canonical JSON text)
//
// A column holding only nulls has no declared type. The declared type is
// what lets a read turn 1 back into true for a BOOLEAN column, so readers
// decode by column type, never by the SQLite storage class alone.
//
// # Deterministic Reads
//
// Every read orders by rowid, which is insertion order for tables written
// by LoadTable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce referential integrity
package store
