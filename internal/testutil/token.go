package testutil

// FixedTokenGenerator generates the same correlation token every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedTokenGenerator produces byte-identical
// call logs.
//
// Unlike engine.FixedGenerator which returns tokens in sequence, this generator
// always returns the same token.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a new fixed token generator.
//
// The token is typically set in the scenario YAML:
//
//	token: "test-token-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-token-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-token-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
