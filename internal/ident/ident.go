// Package ident generates the identifiers handed out for matches and players.
//
// Identifiers are UUIDv7 values rendered as 26 lowercase Crockford base32
// characters, so they sort by creation time and survive being pasted into a
// URL or a log line.
package ident

import (
	crand "crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/quartz"
)

// Crockford's base32, lowercased. No i, l, o or u.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded identifier.
const Length = 26

// RandSource lets tests replace crypto/rand with a predictable stream.
type RandSource interface {
	IntN(n int) int
}

// Generator produces identifiers using an injected clock and randomness.
// It is safe for concurrent use.
type Generator struct {
	clock  quartz.Clock
	rand   RandSource
	prefix string

	mu     sync.Mutex
	lastMs int64
	seq    uint16
}

// NewGenerator returns a generator. A nil clock means the real clock and a
// nil source means crypto/rand.
func NewGenerator(clock quartz.Clock, rand RandSource) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Generator{clock: clock, rand: rand}
}

// WithPrefix returns a generator sharing g's clock and randomness whose
// identifiers are prefixed, e.g. "p_" for players.
func (g *Generator) WithPrefix(prefix string) *Generator {
	return &Generator{clock: g.clock, rand: g.rand, prefix: prefix}
}

var defaultGenerator = NewGenerator(nil, nil)

// New returns an identifier from the package default generator.
func New() string {
	return defaultGenerator.New()
}

// New returns the next identifier.
func (g *Generator) New() string {
	return g.prefix + encode(g.uuid())
}

func (g *Generator) uuid() [16]byte {
	var id [16]byte

	ms := g.clock.Now("ident").UnixMilli()

	g.mu.Lock()
	// A monotonic counter in the 12 sub-millisecond bits keeps ids from the
	// same millisecond ordered.
	if ms == g.lastMs {
		g.seq++
	} else {
		g.lastMs = ms
		g.seq = 0
	}
	seq := g.seq & 0x0fff
	g.mu.Unlock()

	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	if g.rand != nil {
		for i := 8; i < 16; i++ {
			id[i] = byte(g.rand.IntN(256))
		}
	} else if _, err := crand.Read(id[8:]); err != nil {
		panic("ident: crypto/rand unavailable: " + err.Error())
	}

	id[6] = 0x70 | byte(seq>>8) // version 7
	id[7] = byte(seq)
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return id
}

// encode renders 128 bits as 26 base32 digits, most significant first. The
// leading digit only carries 3 bits, which is why it never exceeds '7'.
func encode(id [16]byte) string {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(id[i])
		lo = lo<<8 | uint64(id[i+8])
	}

	out := make([]byte, Length)
	for i := Length - 1; i >= 0; i-- {
		out[i] = alphabet[lo&0x1f]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out)
}

// Validate reports whether s (after an optional prefix) is a well formed
// identifier.
func Validate(s, prefix string) error {
	if !strings.HasPrefix(s, prefix) {
		return fmt.Errorf("identifier %q missing prefix %q", s, prefix)
	}
	s = s[len(prefix):]
	if len(s) != Length {
		return fmt.Errorf("identifier must be %d characters, got %d", Length, len(s))
	}
	if s[0] > '7' {
		return fmt.Errorf("identifier first character must be 0-7, got %c", s[0])
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
	}
	return nil
}
