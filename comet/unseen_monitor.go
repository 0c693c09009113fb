package comet

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// unseen count state machine:
// Idle (active=false)
//   -> Run -> Active (a fetch chain is scheduled every `PollInterval`)
//     -> Stop -> Idle
//     -> count failure -> Idle
//
// `Running` tracks whether a chain exists. `Stop` only clears `Active`;
// the chain observes that at its next checkpoint and clears `Running` itself.
type UnseenState struct {
	Current int64
	Viewed  int64
	Running bool
	Active  bool
}

func (self *UnseenState) reset() {
	self.Current = -1
	self.Viewed = -1
}

// number of messages since the view was last looked at, or 0
func (self *UnseenState) Pending() int64 {
	if !self.Active {
		return 0
	}
	if n := self.Current - self.Viewed; 0 < n {
		return n
	}
	return 0
}

type PendingFunction = func(pending int64)

type UnseenMonitorSettings struct {
	PollInterval time.Duration
	RoomTitle    string
}

func DefaultUnseenMonitorSettings() *UnseenMonitorSettings {
	return &UnseenMonitorSettings{
		PollInterval: 7 * time.Second,
		RoomTitle:    "Chaton",
	}
}

func RoomTitle(room string) string {
	if room == "" {
		return "Chaton"
	}
	return fmt.Sprintf("Chaton %s", room)
}

// polls the count endpoint while the user is away from the view and
// shows the number of new messages in the title.
// a count failure ends the chain with no retry until the next `Run`.
//
// all methods except `Run` and `Stop` must run on the scheduler.
type UnseenMonitor struct {
	scheduler Scheduler
	api       Api
	title     TitleSink
	settings  *UnseenMonitorSettings
	metrics   *Metrics

	log LogFunction

	state   UnseenState
	pending int64

	pendingCallbacks *CallbackList[PendingFunction]
}

func NewUnseenMonitor(
	scheduler Scheduler,
	api Api,
	title TitleSink,
	settings *UnseenMonitorSettings,
	metrics *Metrics,
) *UnseenMonitor {
	monitor := &UnseenMonitor{
		scheduler:        scheduler,
		api:              api,
		title:            title,
		settings:         settings,
		metrics:          metrics,
		log:              LogFn(LogLevelDebug, "[u]"),
		pendingCallbacks: NewCallbackList[PendingFunction](),
	}
	monitor.state.reset()
	return monitor
}

// called when the pending count changes. callbacks run on the scheduler.
func (self *UnseenMonitor) AddPendingCallback(pendingCallback PendingFunction) func() {
	callbackId := self.pendingCallbacks.Add(pendingCallback)
	return func() {
		self.pendingCallbacks.Remove(callbackId)
	}
}

// the user is not looking at the view
func (self *UnseenMonitor) Run() {
	self.scheduler.Post(self.run)
}

// the user is looking at the view
func (self *UnseenMonitor) Stop() {
	self.scheduler.Post(self.stop)
}

func (self *UnseenMonitor) run() {
	self.state.Active = true
	if !self.state.Running {
		self.state.Running = true
		self.state.reset()
		self.log("start")
		self.fetch()
	}
}

func (self *UnseenMonitor) stop() {
	self.state.Active = false
	self.state.reset()
	self.renderTitle()
}

func (self *UnseenMonitor) fetch() {
	if !self.state.Active {
		self.state.Running = false
		self.log("end")
		return
	}
	self.metrics.CountPolls.Inc()
	self.api.FetchCount(NewApiCallback[int64](func(count int64, err error) {
		self.scheduler.Post(func() {
			self.handleCount(count, err)
		})
	}))
}

func (self *UnseenMonitor) handleCount(count int64, err error) {
	if !self.state.Active {
		self.state.Running = false
		self.log("end")
		return
	}
	if err != nil {
		// terminal for this chain. the next `Run` starts a new one.
		glog.Infof("[u]count failed (%s). unseen count stopped\n", err)
		self.metrics.CountFailures.Inc()
		self.state.Running = false
		self.stop()
		return
	}

	if self.state.Current < 0 || count < self.state.Current {
		// first observation since a reset, or the server count went back
		self.state.Current = count
		self.state.Viewed = count
	} else {
		self.state.Current = count
	}
	self.log("count=%d viewed=%d", self.state.Current, self.state.Viewed)
	self.renderTitle()
	self.scheduler.PostDelayed(self.settings.PollInterval, self.fetch)
}

func (self *UnseenMonitor) renderTitle() {
	pending := self.state.Pending()
	self.title.SetTitle(UnseenTitle(pending, self.settings.RoomTitle))

	if pending != self.pending {
		self.pending = pending
		self.metrics.Unseen.Set(float64(pending))
		for _, pendingCallback := range self.pendingCallbacks.Get() {
			pendingCallback(pending)
		}
	}
}

func (self *UnseenMonitor) State() UnseenState {
	return self.state
}

func UnseenTitle(pending int64, roomTitle string) string {
	if 0 < pending {
		return fmt.Sprintf("[%d] %s", pending, roomTitle)
	}
	return roomTitle
}
