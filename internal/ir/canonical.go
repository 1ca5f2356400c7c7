package ir

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// v may be an IRValue or any value FromGo accepts. Differences from
// json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are literal)
//  3. Strings and keys are NFC normalized
//  4. U+2028 and U+2029 are written literally
//  5. Only integers; floats are rejected by the conversion
func MarshalCanonical(v any) ([]byte, error) {
	val, err := FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("canonical JSON: %w", err)
	}
	return AppendCanonical(nil, val), nil
}

// AppendCanonical appends the canonical JSON encoding of v to buf.
// Every IRValue has an encoding, so this cannot fail; a nil interface is
// encoded as null.
func AppendCanonical(buf []byte, v IRValue) []byte {
	switch val := v.(type) {
	case IRString:
		return appendCanonicalString(buf, string(val))
	case IRInt:
		return strconv.AppendInt(buf, int64(val), 10)
	case IRBool:
		return strconv.AppendBool(buf, bool(val))
	case IRArray:
		buf = append(buf, '[')
		for i, elem := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = AppendCanonical(buf, elem)
		}
		return append(buf, ']')
	case IRObject:
		buf = append(buf, '{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonicalString(buf, k)
			buf = append(buf, ':')
			buf = AppendCanonical(buf, val[k])
		}
		return append(buf, '}')
	default:
		return append(buf, "null"...)
	}
}

const hexDigits = "0123456789abcdef"

// appendCanonicalString writes s as an RFC 8785 string: NFC normalized,
// with only quote, backslash and control characters escaped.
func appendCanonicalString(buf []byte, s string) []byte {
	s = norm.NFC.String(s)
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			buf = append(buf, '\\', '"')
		case c == '\\':
			buf = append(buf, '\\', '\\')
		case c == '\b':
			buf = append(buf, '\\', 'b')
		case c == '\f':
			buf = append(buf, '\\', 'f')
		case c == '\n':
			buf = append(buf, '\\', 'n')
		case c == '\r':
			buf = append(buf, '\\', 'r')
		case c == '\t':
			buf = append(buf, '\\', 't')
		case c < 0x20:
			buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			buf = append(buf, c)
		}
	}
	return append(buf, '"')
}
