// Package ir provides the dynamic row value model shared by the joinq
// backends, dataset loaders and CLI.
//
// Rows read from files or SQLite are IRObject values keyed by column name.
// Column values are a sealed set of types:
//
//	IRNull    missing or SQL NULL
//	IRString  text
//	IRInt     int64 (never float)
//	IRBool    boolean
//	IRArray   list of values
//	IRObject  nested object
//
// Floats are rejected at the conversion boundary (FromGo). Keeping numbers
// integral makes key equality exact and canonical encodings stable.
//
// Identity:
//
// MarshalCanonical produces RFC 8785 canonical JSON with NFC-normalized
// strings. Key and RowKey build comparable map keys from it, and RowHash a
// fixed-size digest. Two rows are the same row exactly when their canonical
// encodings are equal; this is what full joins deduplicate on and what the
// scenario harness compares.
//
// This package imports nothing internal.
package ir
