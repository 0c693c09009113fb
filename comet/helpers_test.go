package comet

import (
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

type delayedTask struct {
	delay time.Duration
	task  func()
}

// runs tasks only when the test asks
type manualScheduler struct {
	tasks  []func()
	timers []delayedTask
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (self *manualScheduler) Post(task func()) {
	self.tasks = append(self.tasks, task)
}

func (self *manualScheduler) PostDelayed(delay time.Duration, task func()) {
	self.timers = append(self.timers, delayedTask{
		delay: delay,
		task:  task,
	})
}

func (self *manualScheduler) runPending() {
	for 0 < len(self.tasks) {
		task := self.tasks[0]
		self.tasks = self.tasks[1:]
		task()
	}
}

// fires every timer scheduled so far, regardless of delay
func (self *manualScheduler) fireTimers() {
	timers := self.timers
	self.timers = nil
	for _, timer := range timers {
		self.tasks = append(self.tasks, timer.task)
	}
	self.runPending()
}

type contentCall struct {
	requestTag string
	position   int64
	callback   ContentCallback
}

type postCall struct {
	nick     string
	text     string
	callback PostCallback
}

// records calls; the test answers them through the callbacks
type fakeApi struct {
	contentCalls []contentCall
	countCalls   []CountCallback
	postCalls    []postCall
}

func (self *fakeApi) FetchContent(requestTag string, position int64, callback ContentCallback) {
	self.contentCalls = append(self.contentCalls, contentCall{
		requestTag: requestTag,
		position:   position,
		callback:   callback,
	})
}

func (self *fakeApi) FetchCount(callback CountCallback) {
	self.countCalls = append(self.countCalls, callback)
}

func (self *fakeApi) Post(nick string, text string, callback PostCallback) {
	self.postCalls = append(self.postCalls, postCall{
		nick:     nick,
		text:     text,
		callback: callback,
	})
}

func (self *fakeApi) lastContent() contentCall {
	return self.contentCalls[len(self.contentCalls)-1]
}

func (self *fakeApi) lastCount() CountCallback {
	return self.countCalls[len(self.countCalls)-1]
}

// records every sink call in order. safe to use from the event loop and the test.
type recordingPresentation struct {
	stateLock sync.Mutex
	events    []string
	view      strings.Builder
	title     string
	navigated []string

	eventNotify chan string
}

func newRecordingPresentation() *recordingPresentation {
	return &recordingPresentation{
		eventNotify: make(chan string, 1024),
	}
}

func (self *recordingPresentation) record(event string) {
	self.stateLock.Lock()
	self.events = append(self.events, event)
	self.stateLock.Unlock()

	select {
	case self.eventNotify <- event:
	default:
	}
}

func (self *recordingPresentation) ShowStatus(text string, class StatusClass) {
	self.record(fmt.Sprintf("status:%s:%s", class, text))
}

func (self *recordingPresentation) Clear() {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.view.Reset()
	}()
	self.record("clear")
}

func (self *recordingPresentation) Append(fragment string) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.view.WriteString(fragment)
	}()
	self.record(fmt.Sprintf("append:%s", fragment))
}

func (self *recordingPresentation) ScrollToEnd() {
	self.record("scroll")
}

func (self *recordingPresentation) SetTitle(title string) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.title = title
	}()
	self.record(fmt.Sprintf("title:%s", title))
}

func (self *recordingPresentation) Disable() {
	self.record("disable")
}

func (self *recordingPresentation) Enable(clear bool) {
	self.record(fmt.Sprintf("enable:%t", clear))
}

func (self *recordingPresentation) Navigate(url string) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.navigated = append(self.navigated, url)
	}()
	self.record(fmt.Sprintf("navigate:%s", url))
}

func (self *recordingPresentation) Events() []string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return append([]string{}, self.events...)
}

func (self *recordingPresentation) View() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.view.String()
}

func (self *recordingPresentation) Title() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.title
}

func (self *recordingPresentation) Navigated() []string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return append([]string{}, self.navigated...)
}

func (self *recordingPresentation) countEvents(prefix string) int {
	n := 0
	for _, event := range self.Events() {
		if strings.HasPrefix(event, prefix) {
			n += 1
		}
	}
	return n
}

// waits for an event with `prefix`, skipping others
func (self *recordingPresentation) waitFor(prefix string, timeout time.Duration) (string, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case event := <-self.eventNotify:
			if strings.HasPrefix(event, prefix) {
				return event, true
			}
		case <-deadline:
			return "", false
		}
	}
}
