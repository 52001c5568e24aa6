package telegram

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakePoller struct {
	calls atomic.Int32
	exit  chan struct{}
}

func newFakePoller() *fakePoller {
	return &fakePoller{exit: make(chan struct{}, 4)}
}

func (f *fakePoller) Poll(_ *tele.Bot, _ chan tele.Update, stop chan struct{}) {
	f.calls.Add(1)
	select {
	case <-stop:
	case <-f.exit:
	}
}

func runPoller(p *restartPoller) (stop chan struct{}, done chan struct{}) {
	stop = make(chan struct{})
	done = make(chan struct{})
	go func() {
		p.Poll(nil, make(chan tele.Update), stop)
		close(done)
	}()
	return stop, done
}

func TestRestartPollerRestartsOnceThenGivesUp(t *testing.T) {
	inner := newFakePoller()
	var (
		mu    sync.Mutex
		cause error
	)
	gaveUp := make(chan struct{})
	p := newRestartPoller(inner, 10*time.Millisecond, func(err error) {
		mu.Lock()
		cause = err
		mu.Unlock()
		close(gaveUp)
	})
	stop, done := runPoller(p)

	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)

	p.Report(&tele.Error{Code: 409, Description: "Conflict"}, time.Now())
	require.Eventually(t, func() bool { return inner.calls.Load() == 2 }, time.Second, time.Millisecond)

	inner.exit <- struct{}{}
	select {
	case <-gaveUp:
	case <-time.After(time.Second):
		t.Fatal("poller did not give up after second failure")
	}
	mu.Lock()
	assert.ErrorIs(t, cause, errPollerExited)
	mu.Unlock()
	assert.Equal(t, int32(2), inner.calls.Load())

	close(stop)
	<-done
}

func TestRestartPollerStopsCleanly(t *testing.T) {
	inner := newFakePoller()
	p := newRestartPoller(inner, time.Millisecond, func(error) { t.Error("unexpected give up") })
	stop, done := runPoller(p)

	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestRestartPollerIgnoresTransientErrors(t *testing.T) {
	p := newRestartPoller(newFakePoller(), time.Millisecond, nil)
	now := time.Now()
	for i := 0; i < failureBurst-1; i++ {
		p.Report(errors.New("timeout"), now)
	}
	assert.Empty(t, p.fatal)

	p.Report(errors.New("timeout"), now)
	assert.Len(t, p.fatal, 1, "a burst of errors is fatal")
}

func TestRestartPollerForgetsOldErrors(t *testing.T) {
	p := newRestartPoller(newFakePoller(), time.Millisecond, nil)
	start := time.Now()
	for i := 0; i < failureBurst-1; i++ {
		p.Report(errors.New("timeout"), start)
	}
	p.Report(errors.New("timeout"), start.Add(failureWindow+time.Second))
	assert.Empty(t, p.fatal)
}

func TestIsFatalPollError(t *testing.T) {
	assert.True(t, isFatalPollError(&tele.Error{Code: 401, Description: "Unauthorized"}))
	assert.True(t, isFatalPollError(&tele.Error{Code: 409, Description: "Conflict"}))
	assert.False(t, isFatalPollError(&tele.Error{Code: 400, Description: "Bad Request"}))
	assert.False(t, isFatalPollError(errors.New("network")))
}
