package comet

import (
	"github.com/golang/glog"
)

// poster state machine is:
// PostStateIdle
//   -> PostStateSubmitting
//     -> PostStateIdle (form enabled, text cleared on success)
type PostState string

const (
	PostStateIdle       PostState = "Idle"
	PostStateSubmitting PostState = "Submitting"
)

// one shot post of a message. input is only accepted while idle.
// a failure re-enables the form without clearing it. there is no retry.
//
// all methods except `Submit` must run on the scheduler.
type Poster struct {
	scheduler Scheduler
	api       Api
	form      PostForm
	// may be nil
	nickStore *NickStore
	metrics   *Metrics

	log LogFunction

	state PostState
}

func NewPoster(scheduler Scheduler, api Api, form PostForm, nickStore *NickStore, metrics *Metrics) *Poster {
	return &Poster{
		scheduler: scheduler,
		api:       api,
		form:      form,
		nickStore: nickStore,
		metrics:   metrics,
		log:       LogFn(LogLevelDebug, "[p]"),
		state:     PostStateIdle,
	}
}

// the submit control and the enter key.
// `remember` stores the nick for the next session, otherwise any stored nick is forgotten.
func (self *Poster) Submit(nick string, text string, remember bool) {
	self.scheduler.Post(func() {
		if err := self.submit(nick, text, remember); err != nil {
			self.log("submit ignored (%s)", err)
		}
	})
}

func (self *Poster) submit(nick string, text string, remember bool) error {
	if self.state == PostStateSubmitting {
		return ErrPostInFlight
	}

	self.rememberNick(nick, remember)

	if nick == "" || text == "" {
		return ErrEmptyPost
	}

	self.state = PostStateSubmitting
	self.form.Disable()
	self.api.Post(nick, text, NewApiCallback[*PostResult](func(result *PostResult, err error) {
		self.scheduler.Post(func() {
			self.handlePost(err)
		})
	}))
	return nil
}

func (self *Poster) rememberNick(nick string, remember bool) {
	if self.nickStore == nil {
		return
	}
	var err error
	if remember {
		err = self.nickStore.Remember(nick)
	} else {
		err = self.nickStore.Forget()
	}
	if err != nil {
		glog.Infof("[p]could not update remembered nick (%s)\n", err)
	}
}

func (self *Poster) handlePost(err error) {
	self.state = PostStateIdle
	if err != nil {
		glog.Infof("[p]post failed (%s)\n", err)
		self.metrics.Posts.WithLabelValues("error").Inc()
		self.form.Enable(false)
		return
	}
	self.metrics.Posts.WithLabelValues("ok").Inc()
	self.form.Enable(true)
}

func (self *Poster) State() PostState {
	return self.state
}
