// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/transport/v4/test"
	"github.com/stretchr/testify/assert"
)

func TestLoopFIFO(t *testing.T) {
	report := test.CheckRoutines(t)
	defer report()

	loop := New(nil)
	defer loop.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, loop.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	loop.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestLoopDispatchAfterClose(t *testing.T) {
	report := test.CheckRoutines(t)
	defer report()

	loop := New(nil)
	loop.Close()
	loop.Close()

	assert.False(t, loop.Dispatch(func() {}))
	assert.False(t, loop.Dispatch(nil))
	assert.False(t, loop.Call(func() {}))
}

func TestLoopSurvivesPanic(t *testing.T) {
	loop := New(nil)
	defer loop.Close()

	loop.Dispatch(func() { panic("boom") })

	ran := false
	assert.True(t, loop.Call(func() { ran = true }))
	assert.True(t, ran)
}

func TestTimer(t *testing.T) {
	lim := test.TimeOut(time.Second * 5)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	loop := New(nil)
	defer loop.Close()

	var ticks atomic.Int32
	done := make(chan struct{})
	loop.AddTimer(time.Millisecond, func() bool {
		if ticks.Add(1) == 3 {
			close(done)

			return false
		}

		return true
	})
	<-done

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load(), "timer must stop after returning false")
}

func TestRemoveTimerOnLoop(t *testing.T) {
	lim := test.TimeOut(time.Second * 5)
	defer lim.Stop()

	loop := New(nil)
	defer loop.Close()

	var ticks atomic.Int32
	id := loop.AddTimer(time.Millisecond, func() bool {
		ticks.Add(1)

		return true
	})
	for ticks.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	var after int32
	loop.Call(func() {
		loop.RemoveTimer(id)
		after = ticks.Load()
	})
	time.Sleep(20 * time.Millisecond)
	loop.Done()
	assert.Equal(t, after, ticks.Load())
}
