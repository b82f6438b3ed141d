package grants

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"permissions-manager/internal/domain"
)

// Refresher periodically re-materializes the documents of every application
// holding grants, so that rolling validity windows stay current without
// waiting for the next mutation.
type Refresher struct {
	materializer *Materializer
	docs         domain.GrantDocumentRepository
	notifier     domain.ChangeNotifier
	logger       *slog.Logger
	cron         *cron.Cron
}

func NewRefresher(materializer *Materializer, docs domain.GrantDocumentRepository, notifier domain.ChangeNotifier, logger *slog.Logger) *Refresher {
	return &Refresher{
		materializer: materializer,
		docs:         docs,
		notifier:     notifier,
		logger:       logger,
		cron:         cron.New(),
	}
}

// Start schedules the refresh on the given cron spec and launches the
// scheduler. Returns an error only for an unparsable spec.
func (r *Refresher) Start(spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		r.RefreshAll(context.Background())
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("grant refresher started", "schedule", spec)
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RefreshAll re-materializes every application that holds grants. Failures
// are logged per application and do not stop the sweep.
func (r *Refresher) RefreshAll(ctx context.Context) {
	ids, err := r.docs.ListStaleApplicationIDs(ctx)
	if err != nil {
		r.logger.Error("grant refresh listing failed", "error", err)
		return
	}
	for _, id := range ids {
		if _, err := r.materializer.Materialize(ctx, id); err != nil {
			r.logger.Error("grant refresh failed", "application_id", id, "error", err)
			continue
		}
		r.notifier.Publish(domain.EntityApplication, id, domain.EventApplicationUpdated)
	}
	if len(ids) > 0 {
		r.logger.Debug("grant refresh sweep complete", "applications", len(ids))
	}
}
