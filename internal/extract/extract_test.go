package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "fenced object",
			input: "```json\n{\"restaurant\":{\"name\":\"Chuy's\"}}\n```",
			want:  `{"restaurant":{"name":"Chuy's"}}`,
		},
		{
			name:  "prose around array",
			input: "Here are the places:\n[{\"name\":\"A\"},{\"name\":\"B\"}]\nEnjoy!",
			want:  `[{"name":"A"},{"name":"B"}]`,
		},
		{
			name:  "braces inside strings",
			input: `note {"reason":"contains } and { and \" quotes"} trailing`,
			want:  `{"reason":"contains } and { and \" quotes"}`,
		},
		{
			name:  "first of two objects",
			input: `{"first":true} then {"second":true}`,
			want:  `{"first":true}`,
		},
		{
			name:  "nested mixed brackets",
			input: `result: {"safe":[{"name":"Salad"}],"avoid":[]} done`,
			want:  `{"safe":[{"name":"Salad"}],"avoid":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			require.NotNil(t, got)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtractReturnsNil(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no json", input: "I could not find that restaurant."},
		{name: "unterminated", input: `{"a": [1, 2`},
		{name: "invalid json inside braces", input: `{name: 'single quotes'}`},
		{name: "mismatched closers", input: `{"a": [1}]`},
		{name: "trailing comma", input: `{"a":1,}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Extract(tt.input))
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	assert.True(t, Decode("sure! {\"name\":\"Taco Mac\"}", &out))
	assert.Equal(t, "Taco Mac", out.Name)

	var arr []string
	assert.False(t, Decode(`{"name":"object not array"}`, &arr))
	assert.False(t, Decode("nothing here", &out))
}
