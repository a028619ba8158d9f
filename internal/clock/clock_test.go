package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemClock_Now(t *testing.T) {
	c := New()
	before := time.Now()
	now := c.Now()
	after := time.Now()

	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}

func TestFakeClock_AdvanceFiresTimer(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFake(start)

	timer := fc.NewTimer(5 * time.Second)

	select {
	case <-timer.C():
		t.Fatal("timer fired before advance")
	default:
	}

	fc.Advance(5 * time.Second)

	select {
	case fired := <-timer.C():
		assert.Equal(t, start.Add(5*time.Second), fired)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestFakeClock_StopPreventsDelivery(t *testing.T) {
	fc := NewFake(time.Now())
	timer := fc.NewTimer(time.Second)

	stopped := timer.Stop()
	assert.True(t, stopped)

	fc.Advance(2 * time.Second)

	select {
	case <-timer.C():
		t.Fatal("stopped timer should not fire")
	default:
	}
}

func TestFakeClock_MultipleWaitersAllFire(t *testing.T) {
	fc := NewFake(time.Now())

	var fireOrder []int
	done := make(chan struct{}, 2)

	t1 := fc.NewTimer(2 * time.Second)
	t2 := fc.NewTimer(1 * time.Second)

	go func() {
		<-t2.C()
		fireOrder = append(fireOrder, 2)
		done <- struct{}{}
	}()
	go func() {
		<-t1.C()
		fireOrder = append(fireOrder, 1)
		done <- struct{}{}
	}()

	fc.Advance(3 * time.Second)
	<-done
	<-done

	require.Len(t, fireOrder, 2)
}
