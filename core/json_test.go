package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Text
	}{
		{name: "string", data: `"hello"`, want: "hello"},
		{name: "null", data: `null`, want: ""},
		{name: "empty object", data: `{}`, want: ""},
		{name: "number", data: `42`, want: "42"},
		{name: "array", data: `[1]`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				V Text `json:"v"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+tt.data+`}`), &got))
			assert.Equal(t, tt.want, got.V)
		})
	}
}

func TestTime_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		data string
		want time.Time
	}{
		{name: "epoch ms", data: `1709287200000`, want: want},
		{name: "epoch ms string", data: `"1709287200000"`, want: want},
		{name: "rfc3339", data: `"2024-03-01T10:00:00Z"`, want: want},
		{name: "null", data: `null`},
		{name: "empty", data: `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			require.NoError(t, json.Unmarshal([]byte(tt.data), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}

	out, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
