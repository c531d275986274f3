// SPDX-License-Identifier: AGPL-3.0-only
package session

import (
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps stale entries out of a session store.
type Janitor struct {
	cron   *cron.Cron
	store  *Store
	ttl    time.Duration
	logger *logging.Logger
}

// NewJanitor creates a janitor that prunes entries older than ttl from the
// store on the given cron schedule (descriptor syntax such as "@every 30m").
func NewJanitor(store *Store, ttl time.Duration, schedule string, logger *logging.Logger) (*Janitor, error) {
	c := cron.New(
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		),
	)

	j := &Janitor{
		cron:   c,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}

	if _, err := c.AddFunc(schedule, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) sweep() {
	pruned := j.store.Sweep(j.ttl)
	if pruned > 0 {
		j.logger.Infof("Session janitor pruned %d stale entries", pruned)
	}
}

// Start begins the sweep schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the sweep schedule, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
