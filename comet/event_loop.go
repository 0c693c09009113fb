package comet

import (
	"context"
	"sync"
	"time"
)

// components post all of their state changes through a scheduler.
// tasks run one at a time and in post order, so component state needs no locks
// as long as it is only touched from tasks.
type Scheduler interface {
	Post(task func())
	PostDelayed(delay time.Duration, task func())
}

// a single goroutine that drains a fifo of tasks.
// requests are issued off the loop; their callbacks are posted back onto it.
type EventLoop struct {
	ctx    context.Context
	cancel context.CancelFunc

	stateLock sync.Mutex
	tasks     []func()
	timers    map[*time.Timer]bool

	notify chan struct{}
	done   chan struct{}
}

func NewEventLoop(ctx context.Context) *EventLoop {
	cancelCtx, cancel := context.WithCancel(ctx)
	eventLoop := &EventLoop{
		ctx:    cancelCtx,
		cancel: cancel,
		timers: map[*time.Timer]bool{},
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go eventLoop.run()
	return eventLoop
}

func (self *EventLoop) Post(task func()) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if self.ctx.Err() != nil {
			return
		}
		self.tasks = append(self.tasks, task)
	}()

	select {
	case self.notify <- struct{}{}:
	default:
	}
}

func (self *EventLoop) PostDelayed(delay time.Duration, task func()) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.ctx.Err() != nil {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		func() {
			self.stateLock.Lock()
			defer self.stateLock.Unlock()
			delete(self.timers, timer)
		}()
		self.Post(task)
	})
	self.timers[timer] = true
}

func (self *EventLoop) run() {
	defer func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		for timer := range self.timers {
			timer.Stop()
		}
		clear(self.timers)
		self.tasks = nil
		close(self.done)
	}()

	for {
		select {
		case <-self.ctx.Done():
			return
		case <-self.notify:
		}

		for {
			if self.ctx.Err() != nil {
				return
			}
			task, ok := self.next()
			if !ok {
				break
			}
			HandleError(task)
		}
	}
}

func (self *EventLoop) next() (func(), bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if len(self.tasks) == 0 {
		return nil, false
	}
	task := self.tasks[0]
	self.tasks[0] = nil
	self.tasks = self.tasks[1:]
	return task, true
}

// closed after the loop exits and pending timers are stopped
func (self *EventLoop) Done() <-chan struct{} {
	return self.done
}

func (self *EventLoop) Close() {
	self.cancel()
}
