package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// RecommendationPruner removes expired pending recommendations.
type RecommendationPruner interface {
	DeleteExpired() (int64, error)
}

// AccountPurger removes accounts deactivated before a cutoff.
type AccountPurger interface {
	PurgeDeactivatedBefore(cutoff time.Time) (int, error)
}

// CleanupJob removes data past its useful life: expired recommendation plans
// and accounts deactivated longer than the retention window.
type CleanupJob struct {
	log             zerolog.Logger
	recommendations RecommendationPruner
	accounts        AccountPurger
	retention       time.Duration
}

// CleanupConfig holds configuration for the cleanup job
type CleanupConfig struct {
	Log              zerolog.Logger
	Recommendations  RecommendationPruner
	Accounts         AccountPurger
	AccountRetention time.Duration
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(cfg CleanupConfig) *CleanupJob {
	retention := cfg.AccountRetention
	if retention == 0 {
		retention = 30 * 24 * time.Hour
	}
	return &CleanupJob{
		log:             cfg.Log.With().Str("job", "cleanup").Logger(),
		recommendations: cfg.Recommendations,
		accounts:        cfg.Accounts,
		retention:       retention,
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "cleanup"
}

// Run executes the cleanup. Both steps are independent; one failing does not
// stop the other.
func (j *CleanupJob) Run() error {
	removed, err := j.recommendations.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to remove expired recommendations")
	} else if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Expired recommendations removed")
	}

	purged, err := j.accounts.PurgeDeactivatedBefore(time.Now().Add(-j.retention))
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to purge deactivated accounts")
	} else if purged > 0 {
		j.log.Info().Int("purged", purged).Msg("Deactivated accounts purged")
	}

	return nil
}
