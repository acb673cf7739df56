// Package runner orchestrates one poll cycle: for each configured target,
// fetch a snapshot, diff it against the stored marker, notify the new
// items oldest first, then commit the advanced marker.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"snoowatch/internal/notify"
	"snoowatch/internal/storage"
	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

// Fetcher is the Reddit-facing boundary the controller depends on.
type Fetcher interface {
	Activity(ctx context.Context, username string) ([]watch.Item, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

// Dispatcher delivers one event to all configured channels.
type Dispatcher interface {
	Send(ctx context.Context, ev notify.Event) error
}

type Options struct {
	// HoldMarkerOnNotifyFailure keeps a target's marker unchanged when a
	// notification fails, so the items are retried (and possibly
	// duplicated) next run. Default is to advance regardless.
	HoldMarkerOnNotifyFailure bool
	// DryRun runs the full cycle without committing markers; the
	// dispatcher is expected to swallow sends as well.
	DryRun bool
}

type Runner struct {
	fetcher    Fetcher
	store      storage.Store
	dispatcher Dispatcher
	opts       Options
	log        logx.Logger

	now func() time.Time
}

func New(fetcher Fetcher, store storage.Store, dispatcher Dispatcher, opts Options, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		fetcher:    fetcher,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Summary describes one completed cycle. Per-target failures are counted,
// not fatal: the process still exits 0 when a cycle ran to completion.
type Summary struct {
	Targets        int
	Skipped        int
	Notified       int
	NotifyFailures int
}

// Cycle processes every target sequentially. A failure in one target never
// leaks into another.
func (r *Runner) Cycle(ctx context.Context, targets []watch.Target) Summary {
	start := r.now()
	sum := Summary{Targets: len(targets)}

	for _, target := range targets {
		notified, failures, err := r.processTarget(ctx, target)
		sum.Notified += notified
		sum.NotifyFailures += failures
		if err != nil {
			sum.Skipped++
			r.log.Warn("target skipped this cycle",
				logx.String("user", target.Username),
				logx.Err(err),
			)
			continue
		}
		r.log.Info("processed latest activity",
			logx.String("user", target.Username),
			logx.Int("new_items", notified),
		)
	}

	r.log.Info("cycle complete",
		logx.Int("targets", sum.Targets),
		logx.Int("skipped", sum.Skipped),
		logx.Int("notified", sum.Notified),
		logx.Int("notify_failures", sum.NotifyFailures),
		logx.Duration("took", r.now().Sub(start)),
	)
	return sum
}

func (r *Runner) processTarget(ctx context.Context, target watch.Target) (notified, failures int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.log.Error("target processing panicked",
				logx.String("user", target.Username),
				logx.Any("panic", p),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()

	prev, found, err := r.store.GetState(ctx, target.Username)
	if err != nil {
		return 0, 0, fmt.Errorf("load state: %w", err)
	}
	var prevState *watch.State
	if found {
		prevState = &prev
	}

	if target.Mode == watch.ModeAvailability {
		return r.processAvailability(ctx, target, prevState)
	}
	return r.processActivity(ctx, target, prevState)
}

func (r *Runner) processActivity(ctx context.Context, target watch.Target, prev *watch.State) (int, int, error) {
	snapshot, err := r.fetcher.Activity(ctx, target.Username)
	if err != nil {
		// State stays untouched; the unseen activity is still pending
		// for the next scheduled run.
		return 0, 0, fmt.Errorf("fetch: %w", err)
	}

	fresh, next := watch.Diff(prev, target, snapshot)
	r.log.Debug("diffed snapshot",
		logx.String("user", target.Username),
		logx.Int("snapshot", len(snapshot)),
		logx.Int("new", len(fresh)),
	)

	notified, failures := 0, 0
	for _, it := range fresh {
		ev := notify.Event{Kind: notify.EventActivity, Target: target, Item: it}
		if err := r.dispatcher.Send(ctx, ev); err != nil {
			failures++
			continue
		}
		notified++
	}

	if next != nil {
		if failures > 0 && r.opts.HoldMarkerOnNotifyFailure {
			r.log.Warn("holding marker after notify failures",
				logx.String("user", target.Username),
				logx.Int("failures", failures),
			)
			return notified, failures, nil
		}
		if err := r.commit(ctx, target.Username, *next); err != nil {
			return notified, failures, err
		}
	}
	return notified, failures, nil
}

func (r *Runner) processAvailability(ctx context.Context, target watch.Target, prev *watch.State) (int, int, error) {
	available, err := r.fetcher.UsernameAvailable(ctx, target.Username)
	if err != nil {
		return 0, 0, fmt.Errorf("probe: %w", err)
	}

	changed, next := watch.DiffAvailability(prev, available, r.now().UTC())

	notified, failures := 0, 0
	if changed {
		ev := notify.Event{
			Kind:      notify.EventAvailability,
			Target:    target,
			Available: available,
			At:        next.CheckedAt,
		}
		if err := r.dispatcher.Send(ctx, ev); err != nil {
			failures++
		} else {
			notified++
		}
	}

	if failures > 0 && r.opts.HoldMarkerOnNotifyFailure {
		return notified, failures, nil
	}
	if err := r.commit(ctx, target.Username, *next); err != nil {
		return notified, failures, err
	}
	return notified, failures, nil
}

func (r *Runner) commit(ctx context.Context, username string, st watch.State) error {
	if r.opts.DryRun {
		r.log.Info("dry run: marker not committed", logx.String("user", username))
		return nil
	}
	if err := r.store.PutState(ctx, username, st); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}
