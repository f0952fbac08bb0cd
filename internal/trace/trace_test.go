package trace

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for s := range seqs {
		assert.False(t, seen[s], "seq %d generated twice", s)
		seen[s] = true
	}
	assert.Len(t, seen, goroutines*calls)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.Generate()
	b := g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("s-1", "s-2")
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	b.Record(Call{Seq: 1, Op: "a"})
	b.Record(Call{Seq: 2, Op: "b"})
	b.Record(Call{Seq: 3, Op: "a"})

	assert.Equal(t, []string{"a", "b", "a"}, b.Ops())
	assert.Equal(t, 2, b.Count("a"))
	assert.Len(t, b.Calls(), 3)

	b.Reset()
	assert.Empty(t, b.Calls())
}

func TestTee(t *testing.T) {
	a, b := NewBuffer(), NewBuffer()
	tee := Tee{a, nil, b}
	tee.Record(Call{Seq: 1, Op: "x"})

	assert.Equal(t, []string{"x"}, a.Ops())
	assert.Equal(t, []string{"x"}, b.Ops())
}
