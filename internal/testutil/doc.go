// Package testutil provides deterministic fixtures shared by accumulog tests:
// throwaway SQLite ledgers and fixed correlation tokens.
package testutil
