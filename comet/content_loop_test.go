package comet

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testVersion = "v1"
const testRootUrl = "http://comet.test/"

func newTestContentLoop() (*ContentLoop, *manualScheduler, *fakeApi, *recordingPresentation) {
	scheduler := newManualScheduler()
	api := &fakeApi{}
	presentation := newRecordingPresentation()
	contentLoop := NewContentLoop(
		scheduler,
		api,
		presentation,
		testRootUrl,
		&ContentLoopSettings{
			Version:    testVersion,
			RetryDelay: 10 * time.Second,
		},
		NewMetrics(nil),
	)
	return contentLoop, scheduler, api, presentation
}

func content(position int64, refresh bool, text string) *ContentResponse {
	return &ContentResponse{
		Version:   testVersion,
		UserCount: 2,
		Position:  position,
		Refresh:   refresh,
		Text:      text,
	}
}

func reply(scheduler *manualScheduler, api *fakeApi, result *ContentResponse, err error) {
	api.lastContent().callback.Result(result, err)
	scheduler.runPending()
}

func TestContentLoopTracksServerPosition(t *testing.T) {
	contentLoop, scheduler, api, _ := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	assert.Equal(t, len(api.contentCalls), 1)
	assert.Equal(t, api.contentCalls[0].position, int64(0))

	positions := []int64{5, 9, 9, 12, 40}
	for i, position := range positions {
		reply(scheduler, api, content(position, false, "x"), nil)
		assert.Equal(t, contentLoop.Cursor().Position, position)
		// the next request is issued immediately at the new position
		assert.Equal(t, len(api.contentCalls), i+2)
		assert.Equal(t, api.lastContent().position, position)
	}
	assert.Equal(t, len(scheduler.timers), 0)
}

func TestContentLoopStartOnce(t *testing.T) {
	contentLoop, scheduler, api, _ := newTestContentLoop()

	contentLoop.Start()
	contentLoop.Start()
	scheduler.runPending()
	assert.Equal(t, len(api.contentCalls), 1)
}

func TestContentLoopAppendsAndScrolls(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(1, false, "A"), nil)
	reply(scheduler, api, content(2, false, "B"), nil)

	assert.Equal(t, presentation.View(), "AB")
	assert.Equal(t, presentation.Events(), []string{
		"status:status-ok:Connected (2 users chatting)",
		"append:A",
		"scroll",
		"status:status-ok:Connected (2 users chatting)",
		"append:B",
		"scroll",
	})
}

func TestContentLoopSingleUserStatus(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	response := content(1, false, "")
	response.UserCount = 1
	reply(scheduler, api, response, nil)

	assert.Equal(t, presentation.Events()[0], "status:status-ok:Connected (1 user chatting)")
}

func TestContentLoopPositionRegressionResets(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(10, false, "A"), nil)
	reply(scheduler, api, content(3, false, "B"), nil)

	assert.Equal(t, contentLoop.Cursor().Position, int64(3))
	assert.Equal(t, presentation.View(), "B")
	assert.Equal(t, presentation.Events()[3:], []string{
		"status:status-ok:Connected (2 users chatting)",
		"clear",
		"append:B",
		"scroll",
	})
}

func TestContentLoopRefreshResets(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()
	metrics := contentLoop.metrics

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(10, false, "A"), nil)
	reply(scheduler, api, content(20, true, "B"), nil)
	reply(scheduler, api, content(30, false, "C"), nil)

	assert.Equal(t, presentation.View(), "BC")
	assert.Equal(t, presentation.countEvents("clear"), 1)
	assert.Equal(t, testutil.ToFloat64(metrics.ContentResets), float64(1))
}

func TestContentLoopHeartbeat(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(4, false, "A"), nil)
	reply(scheduler, api, content(5, false, ""), nil)

	assert.Equal(t, contentLoop.Cursor().Position, int64(5))
	assert.Equal(t, presentation.View(), "A")
	assert.Equal(t, presentation.countEvents("scroll"), 2)
	assert.Equal(t, len(api.contentCalls), 3)
}

func TestContentLoopReplayIsIdempotent(t *testing.T) {
	responses := []*ContentResponse{
		content(3, false, "a"),
		content(7, false, "b"),
		content(2, false, "c"),
		content(8, false, "d"),
		content(9, true, "e"),
		content(12, false, "f"),
	}

	replay := func() string {
		contentLoop, scheduler, api, presentation := newTestContentLoop()
		contentLoop.Start()
		scheduler.runPending()
		for _, response := range responses {
			r := *response
			reply(scheduler, api, &r, nil)
		}
		return presentation.View()
	}

	a := replay()
	b := replay()
	assert.Equal(t, a, "ef")
	assert.Equal(t, a, b)
}

func TestContentLoopTransportFailureRetries(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()
	metrics := contentLoop.metrics

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(10, false, "A"), nil)
	assert.Equal(t, len(api.contentCalls), 2)

	reply(scheduler, api, nil, errors.New("connection refused"))

	// no request until the delay passes, and the cursor did not move
	assert.Equal(t, len(api.contentCalls), 2)
	assert.Equal(t, contentLoop.Cursor().Position, int64(10))
	assert.Equal(t, presentation.countEvents("status:status-alert:"+ConnectionLostStatus), 1)
	assert.Equal(t, presentation.countEvents("status:status-ok:"+ConnectingStatus), 0)
	assert.Equal(t, len(scheduler.timers), 1)
	assert.Equal(t, scheduler.timers[0].delay, 10*time.Second)

	scheduler.fireTimers()

	assert.Equal(t, presentation.countEvents("status:status-ok:"+ConnectingStatus), 1)
	assert.Equal(t, len(api.contentCalls), 3)
	assert.Equal(t, api.lastContent().position, int64(10))
	assert.Equal(t, len(scheduler.timers), 0)
	assert.Equal(t, testutil.ToFloat64(metrics.Reconnects), float64(1))

	// the alert is followed by connecting, in that order
	events := presentation.Events()
	assert.Equal(t, events[len(events)-2:], []string{
		"status:status-alert:" + ConnectionLostStatus,
		"status:status-ok:" + ConnectingStatus,
	})
}

func TestContentLoopEmptyResponseRetries(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(4, false, "A"), nil)

	reply(scheduler, api, nil, nil)

	assert.Equal(t, contentLoop.Terminated(), false)
	assert.Equal(t, len(api.contentCalls), 2)
	assert.Equal(t, presentation.countEvents("status:status-alert:"+ConnectionLostStatus), 1)
	assert.Equal(t, len(scheduler.timers), 1)
	assert.Equal(t, testutil.ToFloat64(contentLoop.metrics.ContentFailures), float64(1))

	scheduler.fireTimers()
	assert.Equal(t, len(api.contentCalls), 3)
	assert.Equal(t, api.lastContent().position, int64(4))

	reply(scheduler, api, content(5, false, "B"), nil)
	assert.Equal(t, presentation.View(), "AB")
}

func TestContentLoopRetriesForever(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	for i := 0; i < 50; i += 1 {
		reply(scheduler, api, nil, ErrStatus)
		assert.Equal(t, len(scheduler.timers), 1)
		assert.Equal(t, scheduler.timers[0].delay, 10*time.Second)
		scheduler.fireTimers()
	}
	assert.Equal(t, len(api.contentCalls), 51)
	assert.Equal(t, contentLoop.Cursor().Position, int64(0))
	assert.Equal(t, presentation.countEvents("status:status-alert:"), 50)

	reply(scheduler, api, content(1, false, "back"), nil)
	assert.Equal(t, presentation.View(), "back")
}

func TestContentLoopVersionMismatch(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	reply(scheduler, api, content(10, false, "A"), nil)

	mismatch := content(11, false, "B")
	mismatch.Version = "v2"
	reply(scheduler, api, mismatch, nil)

	assert.Equal(t, contentLoop.Terminated(), true)
	assert.Equal(t, presentation.Navigated(), []string{testRootUrl})
	assert.Equal(t, len(api.contentCalls), 2)
	// nothing from the mismatched response is applied
	assert.Equal(t, presentation.View(), "A")
	assert.Equal(t, contentLoop.Cursor().Position, int64(10))

	contentLoop.Start()
	scheduler.runPending()
	scheduler.fireTimers()
	assert.Equal(t, len(api.contentCalls), 2)
	assert.Equal(t, len(presentation.Navigated()), 1)
}

func TestContentLoopVersionMismatchFirstResponse(t *testing.T) {
	contentLoop, scheduler, api, presentation := newTestContentLoop()

	contentLoop.Start()
	scheduler.runPending()
	mismatch := content(1, true, "")
	mismatch.Version = ""
	reply(scheduler, api, mismatch, nil)

	assert.Equal(t, presentation.Navigated(), []string{testRootUrl})
	assert.Equal(t, len(api.contentCalls), 1)
	assert.Equal(t, presentation.countEvents("status:"), 0)
}
