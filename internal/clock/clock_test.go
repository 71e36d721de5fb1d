package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	c := NewFixed(time.Date(2025, 7, 23, 9, 0, 0, 0, loc))

	got := c.Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, got, c.Now())
}

func TestSimulation_SetAndRewind(t *testing.T) {
	s := NewSimulation(time.Time{})
	require.False(t, s.Pinned())

	later := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	s.Set(later)
	assert.True(t, s.Pinned())
	assert.Equal(t, later, s.Now())

	s.Set(earlier)
	assert.Equal(t, earlier, s.Now())

	s.Reset()
	assert.False(t, s.Pinned())
	assert.WithinDuration(t, time.Now(), s.Now(), time.Minute)
}

func TestSimulation_Advance(t *testing.T) {
	start := time.Date(2025, 7, 23, 14, 0, 0, 0, time.UTC)
	s := NewSimulation(start)

	got := s.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), got)
	assert.Equal(t, got, s.Now())
}

func TestSimulation_ConcurrentAccess(t *testing.T) {
	s := NewSimulation(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Advance(time.Minute)
		}()
		go func() {
			defer wg.Done()
			_ = s.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2025, 1, 1, 0, 8, 0, 0, time.UTC), s.Now())
}
