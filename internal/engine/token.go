package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces correlation tokens for included calls.
// Tokens are tracing metadata: they are logged but never hashed into call IDs
// or state.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort by
// submission time, which helps when reading logs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for testing, then repeats the
// last one. This keeps golden traces byte-identical across runs.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
// With no tokens it always returns "test-token".
//
//	gen := NewFixedGenerator("t-1", "t-2")
//	gen.Generate() // "t-1"
//	gen.Generate() // "t-2"
//	gen.Generate() // "t-2"
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	if len(tokens) == 0 {
		tokens = []string{"test-token"}
	}
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := g.tokens[g.idx]
	if g.idx < len(g.tokens)-1 {
		g.idx++
	}
	return token
}
