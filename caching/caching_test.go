package caching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowCounter(t *testing.T) {
	c := NewWindowCounter(time.Minute)

	assert.Equal(t, int64(1), c.Incr("a", time.Minute))
	assert.Equal(t, int64(2), c.Incr("a", time.Minute))
	assert.Equal(t, int64(1), c.Incr("b", time.Minute))

	c.Reset()
	assert.Equal(t, int64(1), c.Incr("a", time.Minute))
}

func TestWindowCounterExpires(t *testing.T) {
	c := NewWindowCounter(time.Minute)
	c.Incr("a", 20*time.Millisecond)
	c.Incr("a", 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), c.Incr("a", 20*time.Millisecond))
}
