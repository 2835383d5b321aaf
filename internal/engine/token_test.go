package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Generate(t *testing.T) {
	gen := UUIDv7Generator{}

	a := gen.Generate()
	b := gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a, b, "UUIDv7 tokens sort by creation time")
}

func TestFixedGenerator_Sequence(t *testing.T) {
	gen := NewFixedGenerator("t-1", "t-2")

	assert.Equal(t, "t-1", gen.Generate())
	assert.Equal(t, "t-2", gen.Generate())
	assert.Equal(t, "t-2", gen.Generate(), "last token repeats")
}

func TestFixedGenerator_Default(t *testing.T) {
	gen := NewFixedGenerator()
	assert.Equal(t, "test-token", gen.Generate())
}
