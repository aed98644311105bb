package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMarshalUnmarshal(t *testing.T) {
	data, err := Marshal(sample{Name: "질문", Count: 3})
	require.NoError(t, err)

	var got sample
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, sample{Name: "질문", Count: 3}, got)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(sample{Name: "a", Count: 1}))

	var got sample
	require.NoError(t, NewDecoder(strings.NewReader(buf.String())).Decode(&got))
	assert.Equal(t, "a", got.Name)
}
