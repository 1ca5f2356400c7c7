package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainRow prefixes row digests. The version suffix allows the encoding to
// change without colliding with old digests.
const DomainRow = "joinq/row/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Key returns a comparable identity for a tuple of values, such as the
// key columns of a join. Tuples are equal exactly when their values are
// canonically equal; IRNull equals IRNull.
func Key(vals ...IRValue) string {
	return string(AppendCanonical(nil, IRArray(vals)))
}

// RowKey returns the canonical JSON of a row as a string. A nil row and an
// empty row share the key "{}".
func RowKey(row IRObject) string {
	if row == nil {
		row = IRObject{}
	}
	return string(AppendCanonical(nil, row))
}

// RowHash returns the hex SHA-256 digest of a row's canonical encoding.
func RowHash(row IRObject) string {
	return hashWithDomain(DomainRow, []byte(RowKey(row)))
}

// DomainTable prefixes table content digests.
const DomainTable = "joinq/table/v1"

// TableHash digests a table's column list and rows, in order. Two loads of
// the same data produce the same hash.
func TableHash(columns []string, rows []IRObject) string {
	cols := make(IRArray, len(columns))
	for i, c := range columns {
		cols[i] = IRString(c)
	}
	body := make(IRArray, len(rows))
	for i, r := range rows {
		if r == nil {
			r = IRObject{}
		}
		body[i] = r
	}
	return hashWithDomain(DomainTable, AppendCanonical(nil, IRArray{cols, body}))
}
