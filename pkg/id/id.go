// Package id generates unique, time-sortable identifiers for transaction
// records. ULIDs replace the timestamp+short-random-suffix scheme: they are
// lexicographically ordered by generation time and carry 80 bits of entropy,
// which removes the collision window of a 5-character random suffix.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// txnPrefix is kept for continuity with historical transaction ids.
const txnPrefix = "TXN"

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand so ULID entropy is unpredictable.
	// ulid.Monotonic keeps ids generated within the same millisecond
	// lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewTransactionID returns a "TXN"-prefixed ULID string.
func NewTransactionID() string {
	mu.Lock()
	defer mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		// Only possible if time goes backwards or entropy is exhausted.
		panic(err)
	}
	return txnPrefix + u.String()
}
