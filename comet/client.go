package comet

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
)

type ClientSettings struct {
	Version      string
	Room         string
	RetryDelay   time.Duration
	PollInterval time.Duration
	ApiSettings  *CometApiSettings
	// nil does not register the client metrics
	MetricsRegisterer prometheus.Registerer
}

func DefaultClientSettings() *ClientSettings {
	contentLoopSettings := DefaultContentLoopSettings()
	unseenMonitorSettings := DefaultUnseenMonitorSettings()
	return &ClientSettings{
		Version:      contentLoopSettings.Version,
		RetryDelay:   contentLoopSettings.RetryDelay,
		PollInterval: unseenMonitorSettings.PollInterval,
		ApiSettings:  DefaultCometApiSettings(),
	}
}

// one client instance corresponds to one page load of the chat room:
// a content loop driving the view and an unseen monitor driving the title,
// both running on a single event loop, plus the post form.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId Id
	endpoints  *Endpoints

	eventLoop *EventLoop
	api       *CometApi
	metrics   *Metrics

	nickStore *NickStore

	contentLoop   *ContentLoop
	unseenMonitor *UnseenMonitor
	poster        *Poster
}

func NewClientWithDefaults(
	ctx context.Context,
	endpoints *Endpoints,
	presentation Presentation,
	nickStore *NickStore,
) *Client {
	return NewClient(ctx, endpoints, presentation, nickStore, DefaultClientSettings())
}

// `nickStore` may be nil
func NewClient(
	ctx context.Context,
	endpoints *Endpoints,
	presentation Presentation,
	nickStore *NickStore,
	settings *ClientSettings,
) *Client {
	cancelCtx, cancel := context.WithCancel(ctx)

	instanceId := NewId()
	eventLoop := NewEventLoop(cancelCtx)
	api := NewCometApi(cancelCtx, endpoints, instanceId, settings.ApiSettings)
	metrics := NewMetrics(settings.MetricsRegisterer)

	contentLoop := NewContentLoop(
		eventLoop,
		api,
		presentation,
		endpoints.RootUrl(),
		&ContentLoopSettings{
			Version:    settings.Version,
			RetryDelay: settings.RetryDelay,
		},
		metrics,
	)
	unseenMonitor := NewUnseenMonitor(
		eventLoop,
		api,
		presentation,
		&UnseenMonitorSettings{
			PollInterval: settings.PollInterval,
			RoomTitle:    RoomTitle(settings.Room),
		},
		metrics,
	)
	poster := NewPoster(eventLoop, api, presentation, nickStore, metrics)

	glog.Infof("[client]%s version=%s comet=%s\n", instanceId, settings.Version, endpoints.RootUrl())

	return &Client{
		ctx:           cancelCtx,
		cancel:        cancel,
		instanceId:    instanceId,
		endpoints:     endpoints,
		eventLoop:     eventLoop,
		api:           api,
		metrics:       metrics,
		nickStore:     nickStore,
		contentLoop:   contentLoop,
		unseenMonitor: unseenMonitor,
		poster:        poster,
	}
}

func (self *Client) InstanceId() Id {
	return self.instanceId
}

// starts the content loop
func (self *Client) Start() {
	self.contentLoop.Start()
}

// the user left the view
func (self *Client) MonitorRun() {
	self.unseenMonitor.Run()
}

// the user is on the view
func (self *Client) MonitorStop() {
	self.unseenMonitor.Stop()
}

func (self *Client) AddPendingCallback(pendingCallback PendingFunction) func() {
	return self.unseenMonitor.AddPendingCallback(pendingCallback)
}

func (self *Client) Submit(nick string, text string, remember bool) {
	self.poster.Submit(nick, text, remember)
}

// the remembered nick, if any
func (self *Client) Nickname() (string, bool) {
	if self.nickStore == nil {
		return "", false
	}
	nick, ok, err := self.nickStore.Load()
	if err != nil {
		glog.Infof("[client]could not load remembered nick (%s)\n", err)
		return "", false
	}
	return nick, ok
}

func (self *Client) Metrics() *Metrics {
	return self.metrics
}

func (self *Client) Done() <-chan struct{} {
	return self.eventLoop.Done()
}

func (self *Client) Close() {
	self.cancel()
	self.api.Close()
	self.eventLoop.Close()
}
