package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrips(t *testing.T) {
	s, err := AsString(String("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	sym, err := AsSymbol(Symbol("Locked"))
	require.NoError(t, err)
	assert.Equal(t, "Locked", sym)

	u, err := AsUint64(Uint64(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u)

	u32, err := AsUint32(Uint32(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), u32)

	i, err := AsInt64(Int64(-5))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), i)

	b, err := AsBool(Bool(true))
	require.NoError(t, err)
	assert.True(t, b)
}

func TestAsStringRejectsWrongType(t *testing.T) {
	_, err := AsString(Uint64(1))
	assert.Error(t, err)
}

func TestStructRoundTripsFieldsOf(t *testing.T) {
	v := Struct(
		Field{Key: "bounty_id", Val: Uint64(1)},
		Field{Key: "status", Val: Symbol("Locked")},
	)
	fields, err := FieldsOf(v)
	require.NoError(t, err)

	id, err := AsUint64(fields["bounty_id"])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	status, err := AsSymbol(fields["status"])
	require.NoError(t, err)
	assert.Equal(t, "Locked", status)
}

func TestFieldsOfRejectsNonStruct(t *testing.T) {
	_, err := FieldsOf(String("not-a-struct"))
	assert.Error(t, err)
}

func TestOptionRoundTrip(t *testing.T) {
	none := Option(nil)
	vals, err := AsVec(none)
	require.NoError(t, err)
	assert.Empty(t, vals)

	v := Uint64(9)
	some := Option(&v)
	vals, err = AsVec(some)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	u, err := AsUint64(vals[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(9), u)
}

func TestMarshalUnmarshalPreservesStruct(t *testing.T) {
	v := Struct(Field{Key: "amount", Val: String("500")})
	b, err := Marshal(v)
	require.NoError(t, err)
	require.NotEmpty(t, b)

	decoded, err := Unmarshal(b)
	require.NoError(t, err)
	fields, err := FieldsOf(decoded)
	require.NoError(t, err)
	s, err := AsString(fields["amount"])
	require.NoError(t, err)
	assert.Equal(t, "500", s)
}
