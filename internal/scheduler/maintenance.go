package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const jobTimeout = 2 * time.Minute

// SessionSweeper drops expired sessions and their cached rows.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// JournalPruner deletes status-change journal entries older than a cutoff.
type JournalPruner interface {
	PruneStatusChanges(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginSweeper forgets stale login throttling entries.
type LoginSweeper interface {
	Sweep() int
}

// Jobs names what the maintenance jobs operate on. Nil members are skipped.
type Jobs struct {
	Sessions      SessionSweeper
	Logins        LoginSweeper
	SessionCron   string
	Journal       JournalPruner
	JournalCron   string
	JournalRetain time.Duration
	Now           func() time.Time
}

// RegisterMaintenanceJobs adds the session sweep and journal prune jobs.
func RegisterMaintenanceJobs(s *Service, jobs Jobs) error {
	if jobs.Now == nil {
		jobs.Now = time.Now
	}
	if jobs.Sessions != nil || jobs.Logins != nil {
		if _, err := s.AddJob("session_sweep", jobs.SessionCron, func() { SweepSessions(jobs) }); err != nil {
			return fmt.Errorf("register session sweep: %w", err)
		}
	}
	if jobs.Journal != nil {
		if _, err := s.AddJob("journal_prune", jobs.JournalCron, func() { PruneJournal(jobs) }); err != nil {
			return fmt.Errorf("register journal prune: %w", err)
		}
	}
	return nil
}

// SweepSessions runs one session and login-throttle sweep.
func SweepSessions(jobs Jobs) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	logger := log.With().Str("component", "session_sweep_job").Logger()

	if jobs.Sessions != nil {
		removed, err := jobs.Sessions.Sweep(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to sweep sessions")
		} else if removed > 0 {
			logger.Info().Int("removed", removed).Msg("Expired sessions swept")
		}
	}
	if jobs.Logins != nil {
		if removed := jobs.Logins.Sweep(); removed > 0 {
			logger.Debug().Int("removed", removed).Msg("Stale login throttle entries swept")
		}
	}
}

// PruneJournal deletes journal entries older than the retention window.
func PruneJournal(jobs Jobs) {
	if jobs.Journal == nil || jobs.JournalRetain <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	logger := log.With().Str("component", "journal_prune_job").Logger()

	now := time.Now
	if jobs.Now != nil {
		now = jobs.Now
	}
	cutoff := now().Add(-jobs.JournalRetain)
	removed, err := jobs.Journal.PruneStatusChanges(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to prune status journal")
		return
	}
	logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Status journal pruned")
}
