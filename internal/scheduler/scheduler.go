// Package scheduler triggers periodic all-account syncs. It is a thin shell
// over robfig/cron: each tick sweeps every active account through the sync
// service, which already serializes per account and logs outcomes, so
// overlapping ticks degrade to skips instead of duplicate work.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"

	"github.com/yournote/go-diary-backend/internal/services"
)

// Scheduler owns the cron runner for the periodic sync sweep.
type Scheduler struct {
	svc      *services.SyncService
	interval time.Duration
	cron     *cron.Cron
}

// New builds a stopped Scheduler sweeping at the given interval.
func New(svc *services.SyncService, interval time.Duration) *Scheduler {
	return &Scheduler{svc: svc, interval: interval, cron: cron.New()}
}

// Start registers the sweep job and starts the cron runner. When onStartup is
// true one sweep runs immediately in the background.
func (s *Scheduler) Start(onStartup bool) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("interval", s.interval.String()).Msg("sync scheduler started")

	if onStartup {
		go s.sweep()
	}
	return nil
}

// Stop halts the cron runner. Sweeps already in flight finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("sync scheduler stopped")
}

// sweep runs one all-account sync pass.
func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	started := time.Now()
	results, err := s.svc.SyncAllAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled sync sweep failed")
		return
	}

	success, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "success":
			success++
		case "skipped":
			skipped++
		default:
			failed++
		}
	}
	log.Info().
		Int("accounts", len(results)).
		Int("success", success).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("elapsed", time.Since(started)).
		Msg("scheduled sync sweep done")
}
