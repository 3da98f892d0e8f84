// scheduler/scheduler.go
package scheduler

import (
	"sync"
	"time"

	"github.com/wfunc/pongserver/logger"
)

// TickFunc advances one room. dt is the elapsed time since the previous
// firing measured in tick units (1.0 = one nominal interval), so a delayed
// firing advances the simulation proportionally instead of slowing it down.
type TickFunc func(dt float64)

// task is one room's periodic job: its own goroutine, its own ticker, its
// own stop channel. Stopping one task can never affect another room's
// cadence.
type task struct {
	stop chan struct{}
	once sync.Once
}

func (t *task) cancel() {
	t.once.Do(func() { close(t.stop) })
}

// Scheduler drives one fixed-period tick per registered room. Rooms tick
// concurrently and independently; a stalled room blocks only itself.
type Scheduler struct {
	interval time.Duration
	tasks    map[string]*task
	mutex    sync.Mutex
}

// New creates a scheduler firing every interval (the 15ms simulation
// cadence in production).
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Millisecond
	}
	return &Scheduler{
		interval: interval,
		tasks:    make(map[string]*task),
	}
}

// Start begins ticking for roomID. A second Start for a live id is ignored.
func (s *Scheduler) Start(roomID string, fn TickFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.tasks[roomID]; exists {
		return
	}

	t := &task{stop: make(chan struct{})}
	s.tasks[roomID] = t
	go s.run(roomID, t, fn)
}

func (s *Scheduler) run(roomID string, t *task, fn TickFunc) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds() / s.interval.Seconds()
			last = now

			func() {
				// A panic in one room's tick must not take down the
				// scheduler goroutines of other rooms. Stop releases the
				// map slot too, so the id can be restarted.
				defer func() {
					if r := recover(); r != nil {
						logger.Log.Errorf("Tick panic in room %s: %v", roomID, r)
						s.release(roomID, t)
					}
				}()
				fn(dt)
			}()
		}
	}
}

// release cancels t and frees roomID's slot, but only while the slot still
// belongs to t. A task whose slot was already handed to a successor must not
// cancel the successor.
func (s *Scheduler) release(roomID string, t *task) {
	s.mutex.Lock()
	if cur, ok := s.tasks[roomID]; ok && cur == t {
		delete(s.tasks, roomID)
	}
	s.mutex.Unlock()
	t.cancel()
}

// Stop cancels roomID's periodic job and releases its slot. Idempotent, and
// safe to call from inside the room's own tick.
func (s *Scheduler) Stop(roomID string) {
	s.mutex.Lock()
	t, exists := s.tasks[roomID]
	if exists {
		delete(s.tasks, roomID)
	}
	s.mutex.Unlock()

	if exists {
		t.cancel()
	}
}

// StopAll cancels every job. Used on shutdown.
func (s *Scheduler) StopAll() {
	s.mutex.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mutex.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
}

// Active returns the number of running jobs.
func (s *Scheduler) Active() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.tasks)
}
