package session

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nverse/agentrelay/pkg/observability"
)

// Reaper periodically aborts sessions that have produced no engine or client
// activity for longer than ttl. Wired from cmd/server when
// engine.idle_timeout is non-zero.
type Reaper struct {
	manager *Manager
	ttl     time.Duration
	cron    *cron.Cron
}

// NewReaper builds a Reaper that sweeps manager every interval, removing
// sessions idle for longer than ttl.
func NewReaper(manager *Manager, ttl, interval time.Duration) *Reaper {
	r := &Reaper{
		manager: manager,
		ttl:     ttl,
		cron:    cron.New(),
	}
	spec := "@every " + interval.String()
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		// interval is caller-controlled and always a valid duration string;
		// a failure here means a programming error, not a runtime condition.
		panic("session: invalid reaper interval: " + err.Error())
	}
	return r
}

// Start begins the periodic sweep in a background goroutine.
func (r *Reaper) Start() { r.cron.Start() }

// Stop halts the sweep and waits for any in-progress run to finish.
func (r *Reaper) Stop() { <-r.cron.Stop().Done() }

func (r *Reaper) sweep() {
	for _, s := range r.manager.List() {
		if !s.IsRunning() {
			continue
		}
		if s.IdleFor() < r.ttl {
			continue
		}
		slog.Info("reaping idle session", "session_id", s.ID(), "idle_for", s.IdleFor())
		r.manager.Delete(s.ID())
		observability.SessionsReapedTotal.Inc()
	}
}
