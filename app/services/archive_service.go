package services

import (
	"context"
	"sync"
	"time"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/repository"
	"github.com/prbn021/seo-app/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultArchiveBuffer = 256
	archiveWriteTimeout  = 5 * time.Second
)

var archiveCommits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outreach_archive_commits_total",
		Help: "Store commits handled by the archive, partitioned by result.",
	},
	[]string{"result"},
)

// ArchiveService mirrors committed audit entries and delivery outcomes into Postgres.
// Mirroring is best-effort and asynchronous; the engine never reads the archive back.
type ArchiveService struct {
	db         *gorm.DB
	appLogs    repository.AppLogRepository
	deliveries repository.DeliveryLogRepository
	ch         chan store.Commit
	logger     logrus.FieldLogger
}

// NewArchiveService creates an archive service with a bounded commit buffer
func NewArchiveService(db *gorm.DB, appLogs repository.AppLogRepository, deliveries repository.DeliveryLogRepository, buffer int, logger logrus.FieldLogger) *ArchiveService {
	if buffer <= 0 {
		buffer = defaultArchiveBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ArchiveService{
		db:         db,
		appLogs:    appLogs,
		deliveries: deliveries,
		ch:         make(chan store.Commit, buffer),
		logger:     logger.WithField("service", "archive"),
	}
}

// Hook returns the store commit hook feeding the archive. It never blocks; commits that do
// not fit in the buffer are dropped.
func (a *ArchiveService) Hook() store.CommitHook {
	return func(_ context.Context, c store.Commit) {
		select {
		case a.ch <- c:
		default:
			archiveCommits.WithLabelValues("dropped").Inc()
			a.logger.Warn("archive buffer full, commit dropped")
		}
	}
}

// Start launches the archive worker and returns a stop function that flushes buffered commits
func (a *ArchiveService) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				a.flush()
				return
			case c := <-a.ch:
				a.persistLogged(c)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

func (a *ArchiveService) flush() {
	for {
		select {
		case c := <-a.ch:
			a.persistLogged(c)
		default:
			return
		}
	}
}

// persistLogged writes one commit under its own deadline, detached from the worker context
func (a *ArchiveService) persistLogged(c store.Commit) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
	defer cancel()
	if err := a.Persist(ctx, c); err != nil {
		archiveCommits.WithLabelValues("failed").Inc()
		a.logger.WithError(err).Error("archiving commit failed")
		return
	}
	archiveCommits.WithLabelValues("stored").Inc()
}

// Persist writes one commit in a single database transaction
func (a *ArchiveService) Persist(ctx context.Context, c store.Commit) error {
	if c.IsEmpty() {
		return nil
	}

	entries := make([]*models.AppLogEntry, len(c.AuditEntries))
	for i := range c.AuditEntries {
		entries[i] = &c.AuditEntries[i]
	}
	deliveries := make([]*models.DeliveryLogEntry, len(c.Deliveries))
	for i := range c.Deliveries {
		deliveries[i] = &c.Deliveries[i]
	}

	return repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		if err := a.appLogs.SaveBatch(txCtx, entries); err != nil {
			return err
		}
		return a.deliveries.UpsertBatch(txCtx, deliveries)
	})
}
