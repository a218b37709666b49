package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindTarget struct {
	Path   string
	Label  *string
	Count  int
	Ratio  float64
	Small  uint8
	Maybe  *float64
	Flag   bool
	Toggle *bool
}

func (b *bindTarget) params() []*Param {
	return []*Param{
		String("path", "node path", &b.Path).Required(),
		NullableString("label", "", &b.Label),
		Number("count", "", &b.Count),
		Number("ratio", "", &b.Ratio),
		Number("small", "", &b.Small),
		NullableNumber("maybe", "", &b.Maybe),
		Bool("flag", "", &b.Flag),
		NullableBool("toggle", "", &b.Toggle),
	}
}

func TestBindConvertsValues(t *testing.T) {
	var b bindTarget
	err := Bind(b.params(), map[string]any{
		"path":   "World/Player",
		"label":  json.Number("12.50"),
		"count":  json.Number("2.5"),
		"ratio":  "0.25",
		"small":  float64(255),
		"maybe":  nil,
		"flag":   "TRUE",
		"toggle": false,
	})
	require.NoError(t, err)

	assert.Equal(t, "World/Player", b.Path)
	require.NotNil(t, b.Label)
	assert.Equal(t, "12.50", *b.Label)
	assert.Equal(t, 2, b.Count)
	assert.Equal(t, 0.25, b.Ratio)
	assert.Equal(t, uint8(255), b.Small)
	assert.Nil(t, b.Maybe)
	assert.True(t, b.Flag)
	require.NotNil(t, b.Toggle)
	assert.False(t, *b.Toggle)
}

func TestBindRoundsHalfToEven(t *testing.T) {
	var n int
	params := []*Param{Number("n", "", &n)}

	for in, want := range map[string]int{"0.5": 0, "1.5": 2, "2.5": 2, "-1.5": -2, "3.49": 3} {
		require.NoError(t, Bind(params, map[string]any{"n": json.Number(in)}))
		assert.Equal(t, want, n, in)
	}
}

func TestBindResetsAbsentOptionals(t *testing.T) {
	label, maybe, toggle := "old", 1.0, true
	b := bindTarget{Count: 7, Flag: true, Label: &label, Maybe: &maybe, Toggle: &toggle}

	require.NoError(t, Bind(b.params(), map[string]any{"path": "x"}))
	assert.Zero(t, b.Count)
	assert.False(t, b.Flag)
	assert.Nil(t, b.Label)
	assert.Nil(t, b.Maybe)
	assert.Nil(t, b.Toggle)
}

func TestBindCaseInsensitiveLookup(t *testing.T) {
	var b bindTarget
	require.NoError(t, Bind(b.params(), map[string]any{"PATH": "folded", "Count": 3}))
	assert.Equal(t, "folded", b.Path)
	assert.Equal(t, 3, b.Count)

	require.NoError(t, Bind(b.params(), map[string]any{"Path": "fold", "path": "exact"}))
	assert.Equal(t, "exact", b.Path)
}

func TestBindRendersStrings(t *testing.T) {
	var s string
	params := []*Param{String("s", "", &s)}

	cases := []struct {
		in   any
		want string
	}{
		{float64(3), "3"},
		{1.5, "1.5"},
		{true, "true"},
		{map[string]any{"a": json.Number("1")}, `{"a":1}`},
		{[]any{"x", json.Number("2")}, `["x",2]`},
	}
	for _, tc := range cases {
		require.NoError(t, Bind(params, map[string]any{"s": tc.in}))
		assert.Equal(t, tc.want, s)
	}
}

func TestBindErrors(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
		msg  string
	}{
		{"missing required", map[string]any{}, "Parameter 'path' is required."},
		{"bad number", map[string]any{"path": "p", "count": "not-a-number"}, "Parameter 'count' could not be converted to number."},
		{"bool as number", map[string]any{"path": "p", "ratio": true}, "Parameter 'ratio' could not be converted to number."},
		{"out of range", map[string]any{"path": "p", "small": 256}, "Parameter 'small' could not be converted to number."},
		{"negative unsigned", map[string]any{"path": "p", "small": -1}, "Parameter 'small' could not be converted to number."},
		{"null for non-nullable", map[string]any{"path": "p", "flag": nil}, "Parameter 'flag' could not be converted to boolean."},
		{"bad bool", map[string]any{"path": "p", "toggle": "yes"}, "Parameter 'toggle' could not be converted to boolean."},
		{"null string", map[string]any{"path": nil}, "Parameter 'path' could not be converted to string."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b bindTarget
			err := Bind(b.params(), tc.args)
			require.Error(t, err)

			var be *BindError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.msg, be.Message)
		})
	}
}

func TestBindStopsAtFirstFailure(t *testing.T) {
	var b bindTarget
	err := Bind(b.params(), map[string]any{"path": "p", "count": "x", "flag": "also bad"})
	var be *BindError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "count", be.Param)
	assert.False(t, b.Flag)
}
