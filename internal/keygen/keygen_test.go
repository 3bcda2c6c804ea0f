package keygen

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_KeyLength(t *testing.T) {
	testCases := []struct {
		name      string
		length    int
		wantLen   int
	}{
		{name: "default length", length: 8, wantLen: 8},
		{name: "longer key", length: 12, wantLen: 12},
		{name: "too short is clamped", length: 3, wantLen: 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(tc.length, rand.NewSource(1))
			key := g.Key()
			assert.Len(t, key, tc.wantLen)
		})
	}
}

func TestGenerator_Alphabet(t *testing.T) {
	g := New(12, rand.NewSource(42))
	for i := 0; i < 100; i++ {
		key := g.Key()
		for _, r := range key {
			assert.True(t, strings.ContainsRune(alphabet, r),
				"key %q contains %q outside the alphanumeric alphabet", key, r)
		}
	}
}

func TestGenerator_DeterministicWithSeededSource(t *testing.T) {
	a := New(8, rand.NewSource(7))
	b := New(8, rand.NewSource(7))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Key(), b.Key())
	}
}

func TestGenerator_NilSourceStillWorks(t *testing.T) {
	g := New(8, nil)
	assert.Len(t, g.Key(), 8)
}
