package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		URL       string    `json:"url"`
		Embedding []float32 `json:"embedding"`
	}

	in := payload{URL: "https://example.com/a.jpg", Embedding: []float32{0.25, -1, 3}}

	data, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
