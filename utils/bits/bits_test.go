package bits

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type word struct {
	n int
	v uint
}

func roundTrip(t *testing.T, words []word) {
	t.Helper()
	arr := &Array{Bytes: make([]byte, 0, 16)}
	w := NewWriter(arr)
	total := 0
	for _, wd := range words {
		w.Write(wd.n, wd.v)
		total += wd.n
	}
	require.Equal(t, (total+7)/8, len(arr.Bytes))

	r := NewReader(arr)
	for i, wd := range words {
		require.Equal(t, wd.v, r.Read(wd.n), "word %d", i)
	}
	require.Less(t, r.NonReadBits(), 8)
}

func TestKnownLayout(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(1, 1)
	w.Write(3, 0b101)
	w.Write(4, 0b1111)
	w.Write(2, 0b10)
	require.Equal(t, []byte{0b11111011, 0b10}, arr.Bytes)
}

func TestSpanningWords(t *testing.T) {
	roundTrip(t, []word{{3, 5}, {7, 100}, {9, 300}, {1, 0}, {8, 255}, {16, 0xBEEF}})
}

func TestRandomWords(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		count := r.Intn(40)
		words := make([]word, count)
		for j := range words {
			n := 1 + r.Intn(15)
			words[j] = word{n: n, v: uint(r.Intn(1 << uint(n)))}
		}
		roundTrip(t, words)
	}
}

func TestViewDoesNotAdvance(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(5, 17)
	r := NewReader(arr)
	require.Equal(t, uint(17), r.View(5))
	require.Equal(t, uint(17), r.Read(5))
	require.Equal(t, 3, r.NonReadBits())
}

func TestReadPastEndPanics(t *testing.T) {
	arr := &Array{Bytes: []byte{0xFF}}
	r := NewReader(arr)
	r.Read(8)
	require.Panics(t, func() { r.Read(1) })
}
