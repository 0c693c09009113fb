package comet

import (
	"time"
)

type ContentLoopSettings struct {
	Version    string
	RetryDelay time.Duration
}

func DefaultContentLoopSettings() *ContentLoopSettings {
	return &ContentLoopSettings{
		Version:    Version,
		RetryDelay: 10 * time.Second,
	}
}

// the streaming fetch loop.
// each successful response is applied to the view and immediately followed by the next
// request at the new position. the server holds each request until it has new content.
// the loop has no stop. it ends when the version guard trips or the scheduler shuts down.
//
// all methods except `Start` must run on the scheduler.
type ContentLoop struct {
	scheduler    Scheduler
	api          Api
	view         ViewSink
	status       StatusSink
	reconnect    *ReconnectPolicy
	versionGuard *VersionGuard
	metrics      *Metrics
	now          func() time.Time

	log LogFunction

	cursor     Cursor
	started    bool
	inFlight   bool
	terminated bool
}

func NewContentLoop(
	scheduler Scheduler,
	api Api,
	presentation Presentation,
	rootUrl string,
	settings *ContentLoopSettings,
	metrics *Metrics,
) *ContentLoop {
	return &ContentLoop{
		scheduler:    scheduler,
		api:          api,
		view:         presentation,
		status:       presentation,
		reconnect:    NewReconnectPolicy(scheduler, presentation, settings.RetryDelay, metrics),
		versionGuard: NewVersionGuard(settings.Version, rootUrl, presentation, metrics),
		metrics:      metrics,
		now:          time.Now,
		log:          LogFn(LogLevelDebug, "[c]"),
	}
}

// begins the perpetual cycle from the current cursor. calling again has no effect.
func (self *ContentLoop) Start() {
	self.scheduler.Post(func() {
		if self.started {
			return
		}
		self.started = true
		self.fetch()
	})
}

func (self *ContentLoop) fetch() {
	if self.terminated || self.inFlight {
		return
	}
	self.inFlight = true
	requestTag := self.cursor.NextTag(self.now())
	position := self.cursor.Position
	self.metrics.ContentRequests.Inc()
	self.log("fetch t=%s p=%d", requestTag, position)
	self.api.FetchContent(requestTag, position, NewApiCallback[*ContentResponse](
		func(result *ContentResponse, err error) {
			self.scheduler.Post(func() {
				self.handleContent(result, err)
			})
		},
	))
}

func (self *ContentLoop) handleContent(result *ContentResponse, err error) {
	self.inFlight = false
	if self.terminated {
		return
	}
	if err == nil && result == nil {
		err = ErrDecode
	}
	if err != nil {
		self.metrics.ContentFailures.Inc()
		self.reconnect.Failed(err, self.fetch)
		return
	}
	if !self.versionGuard.Check(result.Version) {
		self.terminated = true
		return
	}
	self.apply(result)
	self.fetch()
}

func (self *ContentLoop) apply(result *ContentResponse) {
	self.metrics.Users.Set(float64(result.UserCount))
	self.status.ShowStatus(ConnectedStatus(result.UserCount), StatusOk)
	if result.NeedsReset(self.cursor.Position) {
		self.log("reset refresh=%t p=%d->%d", result.Refresh, self.cursor.Position, result.Position)
		self.metrics.ContentResets.Inc()
		self.view.Clear()
	}
	self.view.Append(result.Text)
	self.cursor.Advance(result.Position)
	self.view.ScrollToEnd()
}

func (self *ContentLoop) Cursor() Cursor {
	return self.cursor
}

func (self *ContentLoop) Terminated() bool {
	return self.terminated
}
