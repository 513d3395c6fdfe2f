package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTransactionID_Format(t *testing.T) {
	txnID := NewTransactionID()

	assert.True(t, strings.HasPrefix(txnID, "TXN"))
	// "TXN" + 26-character ULID
	assert.Len(t, txnID, 29)
}

func TestNewTransactionID_UniqueAndSorted(t *testing.T) {
	const n = 1000

	seen := make(map[string]bool, n)
	prev := ""
	for i := 0; i < n; i++ {
		txnID := NewTransactionID()

		assert.False(t, seen[txnID], "duplicate id generated: %s", txnID)
		seen[txnID] = true

		// Monotonic entropy keeps same-millisecond ids ordered.
		assert.True(t, txnID > prev, "ids must be lexicographically increasing")
		prev = txnID
	}
}
