package upstream

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// KeyDigest returns a stable, non-reversible digest of an upstream key.
// Used only to shard the per-route concurrency semaphore map; it is not a
// credential and carries no keyed-MAC requirement, so a fast non-cryptographic
// hash is the right tool.
func KeyDigest(key string) string {
	sum := xxhash.Sum64String(key)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * (7 - i)))
	}
	return hex.EncodeToString(buf[:])
}
