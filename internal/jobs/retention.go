package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcana-app/credits-server-go/internal/repository"
)

// RetentionJob prunes old ledger transactions on a fixed interval. The
// transactions are an audit trail, not the balance of record, so deletion
// never affects what a user can spend.
type RetentionJob struct {
	entries   repository.LedgerRepository
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewRetentionJob(entries repository.LedgerRepository, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		entries:   entries,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.prune()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *RetentionJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	count, err := j.entries.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune ledger transactions")
	} else if count > 0 {
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msg("pruned ledger transactions")
	}
}
