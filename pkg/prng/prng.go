// Package prng provides a seeded io.Reader for places that want a crypto
// source but need reproducible output, such as faker's uuid generation.
package prng

import (
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
)

// Reader is a deterministic io.Reader backed by a math/rand RNG. It is safe
// for concurrent use; faker shares one crypto source process-wide.
type Reader struct {
	mu sync.Mutex
	r  *rand.Rand
}

func New(seed int64) io.Reader {
	return &Reader{r: rand.New(rand.NewSource(seed))}
}

// Read fills p with pseudorandom bytes. It never fails.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], r.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}
