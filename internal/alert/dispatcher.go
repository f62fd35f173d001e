package alert

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/pkg/cache"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
	"github.com/vikram1211/polymarket-whale-bot/pkg/ratelimit"
)

// limitKey is the dispatcher's endpoint in the rate limit manager.
const limitKey = "telegram:send"

const sentSweepInterval = time.Minute

// Dispatcher consumes queued alerts on a single goroutine and delivers
// each at most once. Sends respect the minimum interval between Telegram
// messages; a failed send is retried a bounded number of times and then
// dropped with a log line, never blocking the pipeline.
type Dispatcher struct {
	queue        chan *Alert
	sender       Sender
	sent         *cache.SeenCache
	limits       *ratelimit.Manager
	monitor      *stats.Monitor
	maxAttempts  int
	retryBackoff time.Duration
	drainTimeout time.Duration
	done         chan struct{}
}

// NewDispatcher wires the dispatcher and registers its send-interval
// limiter under "telegram:send".
func NewDispatcher(sender Sender, limits *ratelimit.Manager, monitor *stats.Monitor, cfg *config.Config) *Dispatcher {
	limits.Register(limitKey, ratelimit.NewInterval(cfg.AlertMinInterval))
	return &Dispatcher{
		queue:        make(chan *Alert, cfg.AlertQueueSize),
		sender:       sender,
		sent:         cache.NewSeenCache(cfg.AlertDedupTTL),
		limits:       limits,
		monitor:      monitor,
		maxAttempts:  cfg.AlertMaxAttempts,
		retryBackoff: cfg.AlertRetryBackoff,
		drainTimeout: cfg.DrainTimeout,
		done:         make(chan struct{}),
	}
}

// Enqueue hands an alert to the dispatcher without blocking. When the
// queue is full the alert is dropped and counted; losing an alert beats
// stalling the trade pipeline.
func (d *Dispatcher) Enqueue(a *Alert) bool {
	select {
	case d.queue <- a:
		return true
	default:
		d.monitor.AlertDropped()
		logger.Warnf("alert queue full, dropping alert for trade %s", a.Trade.ID)
		return false
	}
}

// Pending returns the number of queued, undelivered alerts.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run consumes the queue until ctx is cancelled, then drains what is left
// within the drain timeout before closing Done. Deliveries run on their own
// lifetime context so an alert picked up just before cancellation still
// goes out instead of being cut mid-send.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	d.sent.StartSweep(ctx, sentSweepInterval)

	delivery, cancelDelivery := context.WithCancel(context.Background())
	defer cancelDelivery()

	for {
		select {
		case <-ctx.Done():
			timer := time.AfterFunc(d.drainTimeout, cancelDelivery)
			defer timer.Stop()
			d.drain(delivery)
			return
		case a := <-d.queue:
			d.deliver(delivery, a)
		}
	}
}

// Done is closed once the consumer has exited, drain included.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Flush blocks until the consumer has finished or the timeout elapses.
// Call it after cancelling the Run context.
func (d *Dispatcher) Flush(timeout time.Duration) {
	select {
	case <-d.done:
	case <-time.After(timeout):
		logger.Warnf("alert dispatcher did not drain within %s, %d alerts still queued", timeout, len(d.queue))
	}
}

// Notice sends an out-of-band message (startup, shutdown) through the same
// send-interval limiter as regular alerts.
func (d *Dispatcher) Notice(ctx context.Context, text string) error {
	if err := d.limits.Wait(ctx, limitKey); err != nil {
		return err
	}
	return d.sender.Send(ctx, text)
}

// drain empties the queue. The caller has already put a deadline on ctx;
// anything the deadline cuts off is dropped and counted.
func (d *Dispatcher) drain(ctx context.Context) {
	if len(d.queue) > 0 {
		logger.Infof("draining %d queued alerts", len(d.queue))
	}
	for {
		select {
		case a := <-d.queue:
			d.deliver(ctx, a)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, a *Alert) {
	if !d.sent.MarkIfNew(a.DedupKey()) {
		logger.Debugf("trade %s already alerted, skipping", a.Trade.ID)
		return
	}

	text := FormatAlert(a)
	for attempt := 1; ; attempt++ {
		if err := d.limits.Wait(ctx, limitKey); err != nil {
			d.monitor.AlertDropped()
			logger.Warnf("alert for trade %s dropped: %v", a.Trade.ID, err)
			return
		}

		err := d.sender.Send(ctx, text)
		if err == nil {
			d.monitor.AlertSent()
			d.monitor.RecordAlertLine(a.Summary())
			logger.WithFields(logrus.Fields{
				"trade":  a.Trade.ID,
				"wallet": a.Trade.Wallet,
				"score":  a.Score.Total,
			}).Info("alert sent")
			return
		}

		d.monitor.AlertFailed()
		logger.Warnf("alert send attempt %d/%d for trade %s failed: %v", attempt, d.maxAttempts, a.Trade.ID, err)
		if attempt >= d.maxAttempts {
			d.monitor.AlertDropped()
			logger.Errorf("alert for trade %s dropped after %d attempts", a.Trade.ID, d.maxAttempts)
			return
		}

		select {
		case <-ctx.Done():
			d.monitor.AlertDropped()
			return
		case <-time.After(time.Duration(attempt) * d.retryBackoff):
		}
	}
}
