// Package store owns the in-memory state of the outreach engine and serializes every mutation
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/utils"
)

// DefaultAuditCapacity is the number of audit entries retained
const DefaultAuditCapacity = 100

// Commit describes what a committed transaction changed. It is handed to commit hooks
// after the store lock is released.
type Commit struct {
	AuditEntries []models.AppLogEntry
	Deliveries   []models.DeliveryLogEntry
}

// IsEmpty reports whether the commit carries nothing worth observing
func (c Commit) IsEmpty() bool {
	return len(c.AuditEntries) == 0 && len(c.Deliveries) == 0
}

// CommitHook observes committed transactions
type CommitHook func(ctx context.Context, c Commit)

// Options configures a Store
type Options struct {
	AuditCapacity int
	Clock         func() time.Time
	NewID         func() string
	Hooks         []CommitHook
}

// Store is the single owner of projects, leads, campaigns, the delivery log and the audit log.
// All access goes through WithTx or View; the store never hands out live pointers to callers
// outside those sections unless they clone them.
type Store struct {
	mu sync.RWMutex

	projects   []*models.Project
	campaigns  []*models.Campaign
	deliveries []*models.DeliveryLogEntry
	audit      *auditLog

	clock func() time.Time
	newID func() string

	hooksMu sync.RWMutex
	hooks   []CommitHook
}

// New creates an empty store
func New(opts Options) *Store {
	capacity := opts.AuditCapacity
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	clock := opts.Clock
	if clock == nil {
		clock = utils.UTCNow
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Store{
		audit: newAuditLog(capacity),
		clock: clock,
		newID: newID,
		hooks: append([]CommitHook(nil), opts.Hooks...),
	}
}

// AddHook registers a commit hook
func (s *Store) AddHook(h CommitHook) {
	if h == nil {
		return
	}
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Now returns the store clock's current time
func (s *Store) Now() time.Time {
	return s.clock()
}

// WithTx runs fn as one atomic section. If fn returns an error or panics, every change made
// through the transaction is undone.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &Tx{store: s}

	s.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			s.mu.Unlock()
			err = fmt.Errorf("panic in transaction: %v", r)
			return
		}
		if err != nil {
			tx.rollback()
			s.mu.Unlock()
			return
		}
		commit := tx.commit()
		s.mu.Unlock()
		s.notify(ctx, commit)
	}()

	return fn(tx)
}

// View runs fn under a shared lock. fn must not mutate through the transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&Tx{store: s, readOnly: true})
}

func (s *Store) notify(ctx context.Context, c Commit) {
	if c.IsEmpty() {
		return
	}
	s.hooksMu.RLock()
	hooks := append([]CommitHook(nil), s.hooks...)
	s.hooksMu.RUnlock()

	for _, h := range hooks {
		h(ctx, c)
	}
}
