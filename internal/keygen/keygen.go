package keygen

import (
	"math/rand"
	"strings"
	"time"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength matches the activation codes handed out to users.
const DefaultLength = 8

// Generator produces random alphanumeric access keys. The key is a
// user-facing activation code, not a security boundary, so math/rand
// is sufficient.
type Generator struct {
	length int
	rnd    *rand.Rand
}

// New creates a generator with the given key length and random source.
// Pass a seeded source to make keys reproducible in tests.
func New(length int, src rand.Source) *Generator {
	if length < DefaultLength {
		length = DefaultLength
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{length: length, rnd: rand.New(src)}
}

// Key returns a fresh random key
func (g *Generator) Key() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(alphabet[g.rnd.Intn(len(alphabet))])
	}
	return b.String()
}
