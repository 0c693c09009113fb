package comet

import (
	"time"

	"github.com/golang/glog"
)

// on a transport failure the content loop is suspended for a fixed delay and then resumed
// at the same position. there is no retry limit and the delay does not grow.
type ReconnectPolicy struct {
	scheduler Scheduler
	status    StatusSink
	delay     time.Duration
	metrics   *Metrics
}

func NewReconnectPolicy(scheduler Scheduler, status StatusSink, delay time.Duration, metrics *Metrics) *ReconnectPolicy {
	return &ReconnectPolicy{
		scheduler: scheduler,
		status:    status,
		delay:     delay,
		metrics:   metrics,
	}
}

// schedules exactly one call to `resume` after the delay
func (self *ReconnectPolicy) Failed(err error, resume func()) {
	glog.Infof("[c]connection lost (%s). retry in %s\n", err, self.delay)
	self.status.ShowStatus(ConnectionLostStatus, StatusAlert)
	self.scheduler.PostDelayed(self.delay, func() {
		self.metrics.Reconnects.Inc()
		self.status.ShowStatus(ConnectingStatus, StatusOk)
		resume()
	})
}
