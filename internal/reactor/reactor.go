// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package reactor implements the single-goroutine event loop that owns all
// socket writes, protocol processing and timers of the media sessions.
package reactor

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// Operation is a unit of work executed on the loop goroutine.
type Operation func()

// TimerFunc runs on the loop goroutine at every tick. Returning false
// removes the timer.
type TimerFunc func() bool

// TimerID identifies a registered timer.
type TimerID uint64

type timer struct {
	fn      TimerFunc
	stopped atomic.Bool
	pending atomic.Bool
	stopCh  chan struct{}
}

// Loop is a FIFO task executor with a single consumer goroutine.
type Loop struct {
	mu       sync.Mutex
	ops      *list.List
	wakeCh   chan struct{}
	doneCh   chan struct{}
	isClosed bool

	timers      map[TimerID]*timer
	nextTimerID TimerID
	timerWG     sync.WaitGroup

	log logging.LeveledLogger
}

// New starts a loop.
func New(loggerFactory logging.LoggerFactory) *Loop {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	l := &Loop{
		ops:    list.New(),
		wakeCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
		timers: map[TimerID]*timer{},
		log:    loggerFactory.NewLogger("reactor"),
	}
	go l.run()

	return l
}

// Dispatch adds a new operation to be executed on the loop. It returns false
// if the operation is nil or the loop has been closed.
func (l *Loop) Dispatch(op Operation) bool {
	if op == nil {
		return false
	}

	l.mu.Lock()
	if l.isClosed {
		l.mu.Unlock()

		return false
	}
	l.ops.PushBack(op)
	l.mu.Unlock()

	select {
	case l.wakeCh <- struct{}{}:
	default:
	}

	return true
}

// Call dispatches op and blocks until it has run. It must not be called
// from the loop goroutine. It returns false if the loop is closed.
func (l *Loop) Call(op Operation) bool {
	var wg sync.WaitGroup
	wg.Add(1)
	if !l.Dispatch(func() {
		defer wg.Done()
		op()
	}) {
		return false
	}
	wg.Wait()

	return true
}

// Done blocks until all currently enqueued operations are finished executing.
func (l *Loop) Done() {
	l.Call(func() {})
}

// AddTimer registers fn to run on the loop every interval. Ticks that arrive
// while a previous tick is still queued are coalesced.
func (l *Loop) AddTimer(interval time.Duration, fn TimerFunc) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextTimerID++
	id := l.nextTimerID
	if l.isClosed {
		return id
	}

	t := &timer{fn: fn, stopCh: make(chan struct{})}
	l.timers[id] = t
	l.timerWG.Add(1)
	go l.tick(id, t, interval)

	return id
}

func (l *Loop) tick(id TimerID, t *timer, interval time.Duration) {
	defer l.timerWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
		}

		if !t.pending.CompareAndSwap(false, true) {
			continue
		}
		l.Dispatch(func() {
			t.pending.Store(false)
			if t.stopped.Load() {
				return
			}
			if !t.fn() {
				l.RemoveTimer(id)
			}
		})
	}
}

// RemoveTimer cancels a timer. Once RemoveTimer returns on the loop
// goroutine the timer callback will not run again.
func (l *Loop) RemoveTimer(id TimerID) {
	l.mu.Lock()
	t, ok := l.timers[id]
	delete(l.timers, id)
	l.mu.Unlock()

	if !ok {
		return
	}
	if t.stopped.CompareAndSwap(false, true) {
		close(t.stopCh)
	}
}

// Close drains the queue, stops all timers and waits for the loop goroutine
// to exit. Operations dispatched after Close are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.isClosed {
		l.mu.Unlock()
		<-l.doneCh

		return
	}
	l.isClosed = true
	timers := l.timers
	l.timers = map[TimerID]*timer{}
	l.mu.Unlock()

	for _, t := range timers {
		if t.stopped.CompareAndSwap(false, true) {
			close(t.stopCh)
		}
	}
	l.timerWG.Wait()

	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
	<-l.doneCh
}

func (l *Loop) pop() (Operation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ops.Len() == 0 {
		return nil, l.isClosed
	}

	e := l.ops.Front()
	l.ops.Remove(e)
	op, _ := e.Value.(Operation)

	return op, false
}

func (l *Loop) run() {
	defer close(l.doneCh)

	for {
		op, closed := l.pop()
		switch {
		case op != nil:
			l.execute(op)
		case closed:
			return
		default:
			<-l.wakeCh
		}
	}
}

func (l *Loop) execute(op Operation) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("operation panicked: %v", r)
		}
	}()
	op()
}
