package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the deterministic digest of a canonical key, used as the cache
// entry's primary key. sha256 keeps the collision probability negligible at
// the expected key cardinality.
func Hash(key CanonicalKey) string {
	serialized, err := json.Marshal(key)
	if err != nil {
		// CanonicalKey contains only strings and numbers; Marshal cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
