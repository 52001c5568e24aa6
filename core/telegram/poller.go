package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	"github.com/m3rciful/callmylawyer/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultRestartDelay = 5 * time.Second
	// A burst of this many poller errors inside failureWindow counts as fatal.
	failureBurst  = 10
	failureWindow = 30 * time.Second
)

var errPollerExited = errors.New("poller exited")

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns a Telebot poller based on provided options.
func BuildPoller(opts PollerOptions) tele.Poller {
	runMode := strings.ToLower(strings.TrimSpace(opts.RunMode))
	if runMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", opts.Webhook.Listen, opts.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		}
	}

	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second}
}

// restartPoller runs the inner poller and restarts it exactly once, after a
// fixed delay, when it dies or reports a fatal error. A second failure calls
// onGiveUp and leaves the bot idle until it is stopped.
type restartPoller struct {
	inner    tele.Poller
	delay    time.Duration
	onGiveUp func(error)

	fatal chan error

	mu       sync.Mutex
	failures []time.Time
}

func newRestartPoller(inner tele.Poller, delay time.Duration, onGiveUp func(error)) *restartPoller {
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	return &restartPoller{
		inner:    inner,
		delay:    delay,
		onGiveUp: onGiveUp,
		fatal:    make(chan error, 1),
	}
}

// Poll implements tele.Poller.
func (p *restartPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	restarted := false
	for {
		innerStop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			p.inner.Poll(b, dest, innerStop)
			close(done)
		}()

		var cause error
		select {
		case <-stop:
			close(innerStop)
			<-done
			return
		case cause = <-p.fatal:
			close(innerStop)
			<-done
		case <-done:
			cause = errPollerExited
		}

		if restarted {
			logger.Error(context.Background(), "tg", "poller.give_up",
				slog.String("status", "fail"),
				slog.String("err", cause.Error()),
			)
			if p.onGiveUp != nil {
				p.onGiveUp(cause)
			}
			<-stop
			return
		}
		restarted = true
		logger.Warn(context.Background(), "tg", "poller.restart",
			slog.String("status", "retry"),
			slog.String("err", cause.Error()),
			slog.Duration("delay", p.delay),
		)

		timer := time.NewTimer(p.delay)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		p.reset()
	}
}

// Report feeds a poller-level error. Fatal errors and error bursts trigger
// the restart path.
func (p *restartPoller) Report(err error, now time.Time) {
	if err == nil {
		return
	}
	if !isFatalPollError(err) && !p.burst(now) {
		return
	}
	select {
	case p.fatal <- err:
	default:
	}
}

func (p *restartPoller) burst(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := now.Add(-failureWindow)
	kept := p.failures[:0]
	for _, t := range p.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.failures = append(kept, now)
	return len(p.failures) >= failureBurst
}

func (p *restartPoller) reset() {
	p.mu.Lock()
	p.failures = p.failures[:0]
	p.mu.Unlock()
	select {
	case <-p.fatal:
	default:
	}
}

func isFatalPollError(err error) bool {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict:
			return true
		}
	}
	return false
}
