package session

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvc/confclient/internal/domain"
)

func TestStoreGetUpdate(t *testing.T) {
	s := NewStore(domain.NewToken("t0", time.Minute, time.Now()))
	assert.Equal(t, "t0", s.Get().Value)
	assert.Equal(t, "t0", s.TokenValue())

	installed := s.Update(func(t domain.Token) domain.Token {
		t.Value = "t1"
		return t
	})
	assert.Equal(t, "t1", installed.Value)
	assert.Equal(t, "t1", s.Get().Value)
}

// Concurrent updates must never lose each other's result: with N
// goroutines each appending their mark once, the final value contains
// every mark exactly once in some order.
func TestStoreUpdateNeverLosesConcurrentWrites(t *testing.T) {
	s := NewStore(domain.Token{Value: "|"})

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mark := "w" + strconv.Itoa(i) + "|"
			s.Update(func(t domain.Token) domain.Token {
				t.Value += mark
				return t
			})
		}(i)
	}
	wg.Wait()

	final := s.Get().Value
	for i := 0; i < writers; i++ {
		mark := "w" + strconv.Itoa(i) + "|"
		require.Contains(t, final, mark, "update %d was lost", i)
	}
	assert.Len(t, final, 1+lenAllMarks(writers))
}

func lenAllMarks(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += len("w" + strconv.Itoa(i) + "|")
	}
	return total
}
