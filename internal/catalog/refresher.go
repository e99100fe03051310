package catalog

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher periodically rebuilds remote catalogs in the cache so the API
// source does not drift from upstream. File-backed sources only change when
// the user picks a new file, so only remote sources are scheduled.
type Refresher struct {
	cache    *Cache
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
}

// NewRefresher creates a refresher with a cron schedule such as "@hourly".
func NewRefresher(cache *Cache, schedule string, logger *zap.Logger) *Refresher {
	return &Refresher{
		cache:    cache,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins the refresh schedule. A refresh failure keeps the previous
// catalog and is logged; it never evicts a good catalog.
func (r *Refresher) Start() error {
	_, err := r.cron.AddFunc(r.schedule, r.refreshRemote)
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("catalog refresher started", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the refresh schedule, waiting for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Refresher) refreshRemote() {
	for _, source := range r.cache.Sources() {
		if source.Kind() != SourceOkobaudatAPI {
			continue
		}
		if _, err := r.cache.Reload(context.Background(), source); err != nil {
			r.logger.Warn("catalog refresh failed, keeping previous catalog",
				zap.String("source", source.Describe()), zap.Error(err))
		}
	}
}
