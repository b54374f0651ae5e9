// Package codec is the "canonical self-describing codec (tagged sum
// types, small endian integers, length-prefixed strings)" spec.md §6
// requires for the persistent layout. It generalizes the teacher's
// internal/soroban/xdr_helpers.go — which built xdr.ScVal arguments for
// outbound contract calls — into the encoding used for storage records
// on this side of the wire: every persisted struct becomes a tagged
// xdr.ScVal (an ScMap of symbol->value pairs) and is serialized with the
// same XDR wire format Soroban itself uses, so the "version" field on
// events and the additive key namespace both stay forward compatible by
// construction.
package codec

import (
	"bytes"
	"fmt"

	"github.com/stellar/go/xdr"
)

// Bool encodes a bool as an ScVal.
func Bool(b bool) xdr.ScVal {
	return xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &b}
}

// Uint32 encodes a uint32 as an ScVal.
func Uint32(u uint32) xdr.ScVal {
	v := xdr.Uint32(u)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &v}
}

// Uint64 encodes a uint64 as an ScVal.
func Uint64(u uint64) xdr.ScVal {
	v := xdr.Uint64(u)
	return xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &v}
}

// Int64 encodes an int64 as an ScVal.
func Int64(i int64) xdr.ScVal {
	v := xdr.Int64(i)
	return xdr.ScVal{Type: xdr.ScValTypeScvI64, I64: &v}
}

// String encodes a string as an ScVal, the way EncodeScValString did for
// outbound call args — reused here for both addresses and plain text
// storage fields since both are just UTF-8 strings on this side.
func String(s string) xdr.ScVal {
	scStr := xdr.ScString(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &scStr}
}

// Symbol encodes a short identifier as an ScVal symbol, used for map
// keys and enum discriminants (status, refund mode, circuit state).
func Symbol(s string) xdr.ScVal {
	sym := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}
}

// Vec encodes a slice of ScVal as an ScVal vector, same shape the
// teacher's EncodeScValVec used for outbound argument lists.
func Vec(vals []xdr.ScVal) xdr.ScVal {
	vec := xdr.ScVec(vals)
	vecPtr := &vec
	return xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &vecPtr}
}

// Option encodes an optional ScVal the way EncodeScValOption did:
// Option<T> as a Vec of 0 or 1 elements.
func Option(val *xdr.ScVal) xdr.ScVal {
	if val == nil {
		return Vec(nil)
	}
	return Vec([]xdr.ScVal{*val})
}

// Field is a single key/value entry of a tagged struct.
type Field struct {
	Key string
	Val xdr.ScVal
}

// Struct encodes an ordered set of named fields as a tagged ScVal map —
// the "tagged sum type" storage record shape named in spec.md §4.1.
// Field order is preserved so byte-identical structs encode identically.
func Struct(fields ...Field) xdr.ScVal {
	entries := make(xdr.ScMap, 0, len(fields))
	for _, f := range fields {
		key := Symbol(f.Key)
		val := f.Val
		entries = append(entries, xdr.ScMapEntry{Key: key, Val: val})
	}
	mapPtr := &entries
	return xdr.ScVal{Type: xdr.ScValTypeScvMap, Map: &mapPtr}
}

// FieldsOf returns the decoded fields of a Struct-encoded ScVal, keyed
// by symbol name, for record decoding.
func FieldsOf(v xdr.ScVal) (map[string]xdr.ScVal, error) {
	if v.Type != xdr.ScValTypeScvMap || v.Map == nil || *v.Map == nil {
		return nil, fmt.Errorf("codec: value is not a tagged struct")
	}
	out := make(map[string]xdr.ScVal, len(**v.Map))
	for _, e := range **v.Map {
		if e.Key.Type != xdr.ScValTypeScvSymbol || e.Key.Sym == nil {
			return nil, fmt.Errorf("codec: struct key is not a symbol")
		}
		out[string(*e.Key.Sym)] = e.Val
	}
	return out, nil
}

// Marshal serializes an ScVal to its canonical XDR wire bytes.
func Marshal(v xdr.ScVal) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &v); err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes canonical XDR wire bytes back into an ScVal.
func Unmarshal(data []byte) (xdr.ScVal, error) {
	var v xdr.ScVal
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &v); err != nil {
		return xdr.ScVal{}, fmt.Errorf("codec: unmarshal: %w", err)
	}
	return v, nil
}

// AsString decodes a String-encoded field back into a Go string.
func AsString(v xdr.ScVal) (string, error) {
	if v.Type != xdr.ScValTypeScvString || v.Str == nil {
		return "", fmt.Errorf("codec: value is not a string")
	}
	return string(*v.Str), nil
}

// AsSymbol decodes a Symbol-encoded field back into a Go string.
func AsSymbol(v xdr.ScVal) (string, error) {
	if v.Type != xdr.ScValTypeScvSymbol || v.Sym == nil {
		return "", fmt.Errorf("codec: value is not a symbol")
	}
	return string(*v.Sym), nil
}

// AsUint64 decodes a Uint64-encoded field.
func AsUint64(v xdr.ScVal) (uint64, error) {
	if v.Type != xdr.ScValTypeScvU64 || v.U64 == nil {
		return 0, fmt.Errorf("codec: value is not a u64")
	}
	return uint64(*v.U64), nil
}

// AsUint32 decodes a Uint32-encoded field.
func AsUint32(v xdr.ScVal) (uint32, error) {
	if v.Type != xdr.ScValTypeScvU32 || v.U32 == nil {
		return 0, fmt.Errorf("codec: value is not a u32")
	}
	return uint32(*v.U32), nil
}

// AsInt64 decodes an Int64-encoded field.
func AsInt64(v xdr.ScVal) (int64, error) {
	if v.Type != xdr.ScValTypeScvI64 || v.I64 == nil {
		return 0, fmt.Errorf("codec: value is not an i64")
	}
	return int64(*v.I64), nil
}

// AsBool decodes a Bool-encoded field.
func AsBool(v xdr.ScVal) (bool, error) {
	if v.Type != xdr.ScValTypeScvBool || v.B == nil {
		return false, fmt.Errorf("codec: value is not a bool")
	}
	return *v.B, nil
}

// AsVec decodes a Vec-encoded field into its element slice.
func AsVec(v xdr.ScVal) ([]xdr.ScVal, error) {
	if v.Type != xdr.ScValTypeScvVec || v.Vec == nil || *v.Vec == nil {
		return nil, fmt.Errorf("codec: value is not a vec")
	}
	return []xdr.ScVal(**v.Vec), nil
}
