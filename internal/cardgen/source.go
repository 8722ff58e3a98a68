package cardgen

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// Source supplies uniform integers in [0, n). *math/rand.Rand satisfies it,
// which is how tests get deterministic output.
type Source interface {
	Intn(n int) int
}

// CryptoSource draws from crypto/rand. It is safe for concurrent use.
type CryptoSource struct {
	mu  sync.Mutex
	buf [64]byte
	pos int
}

func NewCryptoSource() *CryptoSource {
	return &CryptoSource{pos: 64}
}

// Intn uses rejection sampling so every value in [0, n) is equally likely.
// n must be in (0, 256].
func (s *CryptoSource) Intn(n int) int {
	if n <= 0 || n > 256 {
		panic(fmt.Sprintf("cardgen: Intn bound %d out of range", n))
	}
	threshold := 256 - (256 % n) // 250 for n=10
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.pos == len(s.buf) {
			// refill in batches to cut down on syscalls
			if _, err := rand.Read(s.buf[:]); err != nil {
				panic(fmt.Sprintf("cardgen: crypto/rand: %v", err))
			}
			s.pos = 0
		}
		b := int(s.buf[s.pos])
		s.pos++
		if b < threshold {
			return b % n
		}
	}
}
