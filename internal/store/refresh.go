package store

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	appLog "classgrid/internal/log"
)

// reloadTimeout bounds one scheduled reload.
const reloadTimeout = 2 * time.Minute

// Refresher reloads a Store on a cron schedule.
type Refresher struct {
	store  *Store
	spec   string
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// NewRefresher validates spec and returns a stopped Refresher.
func NewRefresher(s *Store, spec string) (*Refresher, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	return &Refresher{store: s, spec: spec}, nil
}

// Start schedules periodic reloads until Stop is called or ctx ends.
func (r *Refresher) Start(ctx context.Context) {
	r.runCtx, r.cancel = context.WithCancel(ctx)
	c := cron.New()
	// spec was validated in NewRefresher.
	_, _ = c.AddFunc(r.spec, func() { r.runOnce(r.runCtx) })
	c.Start()
	r.cron = c
	appLog.Info("schedule refresher started", "spec", r.spec)
}

// Stop cancels any in-flight reload and waits for running jobs to finish.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Run is Start, then Stop once ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.Start(ctx)
	<-ctx.Done()
	r.Stop()
	return nil
}

func (r *Refresher) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	if err := r.store.Reload(ctx); err != nil {
		if errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) {
			return
		}
		appLog.Warn("scheduled reload failed; keeping previous data", "err", err.Error())
	}
}
