package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := New(true, 3, time.Minute, time.Minute, nil)

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure(), "third failure within the window should open the circuit")
	assert.True(t, b.IsOpen())
}

func TestBreakerSuccessCloses(t *testing.T) {
	b := New(true, 2, time.Minute, time.Minute, nil)

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	assert.False(t, b.IsOpen())

	failures, _ := b.State()
	assert.Zero(t, failures, "success resets the failure count")
}

func TestBreakerCooldownCloses(t *testing.T) {
	b := New(true, 1, time.Minute, 10*time.Millisecond, nil)

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, b.IsOpen(), "past the cooldown the circuit closes for a fresh attempt")
}

func TestBreakerWindowExpiryResetsCount(t *testing.T) {
	b := New(true, 2, 10*time.Millisecond, time.Minute, nil)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, b.RecordFailure(), "failures outside the window do not accumulate")
	assert.False(t, b.IsOpen())
}

func TestBreakerDisabled(t *testing.T) {
	b := New(false, 1, time.Minute, time.Minute, nil)

	assert.False(t, b.RecordFailure())
	assert.False(t, b.IsOpen(), "a disabled breaker never opens")
}

func TestBreakerReset(t *testing.T) {
	b := New(true, 1, time.Minute, time.Hour, nil)

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
}

func TestSetPerChainIsolation(t *testing.T) {
	set := NewSet(true, 1, time.Minute, time.Hour, nil)

	set.For(1).RecordFailure()
	assert.True(t, set.For(1).IsOpen())
	assert.False(t, set.For(137).IsOpen(), "one chain's failures never affect another")

	assert.Same(t, set.For(1), set.For(1), "breakers are per-chain singletons")
	assert.ElementsMatch(t, []int{1, 137}, set.ChainIDs())
}
