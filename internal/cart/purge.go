package cart

import (
	"context"
	"time"
)

// PurgeJob is the daily retention pass over abandoned empty carts. It is a
// single conditional bulk update, so re-running it changes nothing.
type PurgeJob struct {
	repo      Repository
	retention time.Duration
	now       func() time.Time
}

func NewPurgeJob(repo Repository, retention time.Duration) *PurgeJob {
	return &PurgeJob{repo: repo, retention: retention, now: time.Now}
}

func (j *PurgeJob) Name() string { return "cart_purge_empty" }

func (j *PurgeJob) Run(ctx context.Context) (int64, error) {
	return j.repo.PurgeEmpty(ctx, j.now().UTC().Add(-j.retention))
}
