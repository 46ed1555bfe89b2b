package daemon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DoublesUntilCap(t *testing.T) {
	b := &Backoff{InitialDelayMs: 1000, MaxDelayMs: 5000, Multiplier: 2}

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next(), "delay must clamp at MaxDelayMs")
	assert.Equal(t, 5*time.Second, b.Next())
}

func TestBackoff_Reset(t *testing.T) {
	b := &Backoff{InitialDelayMs: 1000, MaxDelayMs: 60000, Multiplier: 2}
	b.Next()
	b.Next()
	assert.Equal(t, 2, b.Attempt())

	b.Reset()
	assert.Equal(t, 0, b.Attempt())
	assert.Equal(t, 1*time.Second, b.Next())
}
