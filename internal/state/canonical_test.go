package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	obj := Object{"zeta": Int(1), "alpha": Int(2), "mid": Int(3)}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(Object{"cmp": String("a<b>&c")})
	require.NoError(t, err)
	assert.Equal(t, `{"cmp":"a<b>&c"}`, string(data))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" composed (U+00E9) and decomposed (e + U+0301) must produce
	// identical canonical bytes.
	composed, err := MarshalCanonical(String("café"))
	require.NoError(t, err)

	decomposed, err := MarshalCanonical(String("café"))
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_LineSeparatorsNotEscaped(t *testing.T) {
	data, err := MarshalCanonical(String("a b c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(data))
}

func TestMarshalCanonical_LiteralBackslashU2028Preserved(t *testing.T) {
	// A literal backslash followed by the text "u2028" must stay escaped
	// as \\u2028, not be folded into the character.
	data, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": 1.0})
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	obj := Object{
		"items": Array{
			Object{"name": String("sword"), "qty": Int(1)},
			Object{"name": String("gem"), "qty": Int(12)},
		},
		"owner": String("p1"),
	}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t,
		`{"items":[{"name":"sword","qty":1},{"name":"gem","qty":12}],"owner":"p1"}`,
		string(data))
}

func TestMarshalCanonical_GoPrimitives(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"n": int64(7), "b": true, "s": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"b":true,"n":7,"s":"x"}`, string(data))
}
