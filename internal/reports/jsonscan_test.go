package reports

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`, ok: true},
		{name: "fenced", in: "```json\n{\"a\":{\"b\":2}}\n```", want: `{"a":{"b":2}}`, ok: true},
		{name: "brace in string", in: `x {"a":"}{"} y {"b":1}`, want: `{"a":"}{"}`, ok: true},
		{name: "escaped quote", in: `{"a":"say \"}\""}`, want: `{"a":"say \"}\""}`, ok: true},
		{name: "unbalanced", in: `{"a":1`, ok: false},
		{name: "none", in: `no json here`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeObjectKeepsNumberText(t *testing.T) {
	obj, ok := decodeObject(`prefix {"value": 14.20, "flag": true} suffix`)
	require.True(t, ok)
	assert.Equal(t, json.Number("14.20"), obj["value"])
	assert.Equal(t, true, obj["flag"])

	_, ok = decodeObject(`{"value": 14.20,}`)
	assert.False(t, ok)
}
