package notify

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	logx "snoowatch/pkg/logx"
)

// Dispatcher fans one event out to every configured channel, rate limited
// across channels. A channel failure is reported but does not stop the
// other channels from receiving the event.
type Dispatcher struct {
	channels []Notifier
	limiter  *rate.Limiter
	log      logx.Logger
	dryRun   bool
}

func NewDispatcher(channels []Notifier, ratePerSec int, dryRun bool, log logx.Logger) *Dispatcher {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		channels: channels,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:      log,
		dryRun:   dryRun,
	}
}

func (d *Dispatcher) Send(ctx context.Context, ev Event) error {
	if d.dryRun {
		d.log.Info("dry run: would notify",
			logx.String("user", ev.Target.Username),
			logx.String("kind", string(ev.Kind)),
			logx.String("item", ev.Item.ID),
		)
		return nil
	}
	if len(d.channels) == 0 {
		d.log.Debug("no notification channels configured")
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Send(ctx, ev); err != nil {
			d.log.Error("notification failed",
				logx.String("channel", ch.Name()),
				logx.String("user", ev.Target.Username),
				logx.String("item", ev.Item.ID),
				logx.Err(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
