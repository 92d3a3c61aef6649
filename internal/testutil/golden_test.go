package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalGolden(t *testing.T) {
	data, err := MarshalGolden(map[string]any{"actual": "<nothing>", "n": 1})
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"actual\": \"<nothing>\",\n  \"n\": 1\n}\n", string(data))
}
