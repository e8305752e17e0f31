package hw

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// DefaultWatchdogTimeout is the reload value of the watchdog.
const DefaultWatchdogTimeout = 5 * time.Second

// Watchdog calls OnExpire when not kicked within Timeout.
type Watchdog struct {
	Timeout  time.Duration
	OnExpire func()

	last atomic.Int64
}

// NewWatchdog creates a started watchdog.
func NewWatchdog(timeout time.Duration, onExpire func()) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultWatchdogTimeout
	}
	w := &Watchdog{Timeout: timeout, OnExpire: onExpire}
	w.Kick()
	return w
}

// Kick reloads the watchdog.
func (w *Watchdog) Kick() {
	w.last.Store(time.Now().UnixNano())
}

// Expired reports whether the watchdog ran out at now.
func (w *Watchdog) Expired(now time.Time) bool {
	return now.Sub(time.Unix(0, w.last.Load())) >= w.Timeout
}

// Name implements fx.Named.
func (w *Watchdog) Name() string {
	return "watchdog"
}

// Run implements fx.Runnable.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Timeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if w.Expired(now) {
				glog.Errorf("watchdog expired, no kick for %s", w.Timeout)
				w.Kick()
				if w.OnExpire != nil {
					w.OnExpire()
				}
			}
		}
	}
}

// AddToLoop implements fx.LoopAdder: kicked first in every cycle and
// in every service tick.
func (w *Watchdog) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvWatchdog, fx.ControlFunc(func(fx.ControlContext) error {
		w.Kick()
		return nil
	}))
	loop.AddServiceTick(w.Kick)
	loop.AddRunnable(w)
}
