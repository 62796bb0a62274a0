package testing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prbn021/seo-app/models"
)

// ErrArchiveDown is returned by the in-memory archives once Fail has been called
var ErrArchiveDown = errors.New("archive unavailable")

// MemoryDeliveryLogArchive is an in-memory DeliveryLogRepository for tests that do not need Postgres
type MemoryDeliveryLogArchive struct {
	mu   sync.Mutex
	rows []*models.DeliveryLogEntry
	err  error
}

func NewMemoryDeliveryLogArchive(rows ...*models.DeliveryLogEntry) *MemoryDeliveryLogArchive {
	a := &MemoryDeliveryLogArchive{}
	_ = a.UpsertBatch(context.Background(), rows)
	return a
}

// Fail makes every later call return ErrArchiveDown
func (a *MemoryDeliveryLogArchive) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ErrArchiveDown
}

func (a *MemoryDeliveryLogArchive) ByID(_ context.Context, id string) (*models.DeliveryLogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	for _, r := range a.rows {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (a *MemoryDeliveryLogArchive) matches(r *models.DeliveryLogEntry, f models.DeliveryLogFilter) bool {
	switch {
	case f.ID != nil && r.ID != *f.ID:
		return false
	case f.ProjectID != nil && r.ProjectID != *f.ProjectID:
		return false
	case f.LeadID != nil && r.LeadID != *f.LeadID:
		return false
	case f.Status != nil && r.Status != *f.Status:
		return false
	}
	return true
}

func (a *MemoryDeliveryLogArchive) ByFilter(_ context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}

	var out []*models.DeliveryLogEntry
	for _, r := range a.rows {
		if a.matches(r, filter) {
			out = append(out, r.Clone())
		}
	}
	if orderBy != "" {
		desc := strings.HasSuffix(orderBy, "DESC")
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return window(out, limit, offset), nil
}

func (a *MemoryDeliveryLogArchive) Count(ctx context.Context, filter models.DeliveryLogFilter) (int64, error) {
	rows, err := a.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (a *MemoryDeliveryLogArchive) SaveBatch(ctx context.Context, entities []*models.DeliveryLogEntry) error {
	return a.UpsertBatch(ctx, entities)
}

func (a *MemoryDeliveryLogArchive) UpsertBatch(_ context.Context, entities []*models.DeliveryLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}

	for _, e := range entities {
		replaced := false
		for i, r := range a.rows {
			if r.ID == e.ID {
				a.rows[i] = e.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			a.rows = append(a.rows, e.Clone())
		}
	}
	return nil
}

func (a *MemoryDeliveryLogArchive) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*models.DeliveryLogEntry, error) {
	return a.ByFilter(ctx, models.DeliveryLogFilter{ProjectID: &projectID}, "created_at DESC", limit, offset)
}

// MemoryAppLogArchive is an in-memory AppLogRepository for tests that do not need Postgres
type MemoryAppLogArchive struct {
	mu   sync.Mutex
	rows []*models.AppLogEntry
	err  error
}

func NewMemoryAppLogArchive(rows ...*models.AppLogEntry) *MemoryAppLogArchive {
	a := &MemoryAppLogArchive{}
	_ = a.SaveBatch(context.Background(), rows)
	return a
}

// Fail makes every later call return ErrArchiveDown
func (a *MemoryAppLogArchive) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = ErrArchiveDown
}

func (a *MemoryAppLogArchive) ByID(_ context.Context, id string) (*models.AppLogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	for _, r := range a.rows {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (a *MemoryAppLogArchive) ByFilter(_ context.Context, filter models.AppLogFilter, orderBy string, limit, offset int) ([]*models.AppLogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}

	var out []*models.AppLogEntry
	for _, r := range a.rows {
		switch {
		case filter.Severity != nil && r.Severity != *filter.Severity:
			continue
		case filter.Action != nil && r.Action != *filter.Action:
			continue
		case filter.CreatedAfter != nil && r.Timestamp.Before(*filter.CreatedAfter):
			continue
		case filter.CreatedBefore != nil && !r.Timestamp.Before(*filter.CreatedBefore):
			continue
		}
		c := *r
		out = append(out, &c)
	}
	if orderBy != "" {
		desc := strings.HasSuffix(orderBy, "DESC")
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Timestamp.After(out[j].Timestamp)
			}
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	}
	return window(out, limit, offset), nil
}

func (a *MemoryAppLogArchive) Count(ctx context.Context, filter models.AppLogFilter) (int64, error) {
	rows, err := a.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (a *MemoryAppLogArchive) SaveBatch(_ context.Context, entities []*models.AppLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	for _, e := range entities {
		c := *e
		a.rows = append(a.rows, &c)
	}
	return nil
}

func (a *MemoryAppLogArchive) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AppLogEntry, error) {
	return a.ByFilter(ctx, models.AppLogFilter{Action: &action}, "timestamp DESC", limit, offset)
}

func (a *MemoryAppLogArchive) ListFailures(ctx context.Context, limit, offset int) ([]*models.AppLogEntry, error) {
	severity := models.SeverityError
	return a.ByFilter(ctx, models.AppLogFilter{Severity: &severity}, "timestamp DESC", limit, offset)
}

func window[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
