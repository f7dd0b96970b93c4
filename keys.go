package entwine

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// KeyStrategy how primary keys come into existence on insert.
type KeyStrategy int

const (
	// KeySequential the engine generates the key (auto increment or a
	// RETURNING clause); the core reads it back after insert.
	KeySequential KeyStrategy = iota
	// KeyUUID a random UUIDv4 string generated before insert.
	KeyUUID
	// KeyULID a lexicographically sortable random ULID string generated
	// before insert.
	KeyULID
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
	entropyMu   sync.Mutex
)

func newULID() string {
	entropyOnce.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// generateKey produce a key for the strategy, or nil for sequential keys.
func generateKey(strategy KeyStrategy) interface{} {
	switch strategy {
	case KeyUUID:
		return uuid.NewString()
	case KeyULID:
		return newULID()
	default:
		return nil
	}
}
