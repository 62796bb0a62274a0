package store

import (
	"errors"
	"time"

	"github.com/prbn021/seo-app/models"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrDeliveryNotFound = errors.New("delivery log entry not found")
)

// Tx is the handle passed to WithTx and View. Pointers returned by its accessors are live
// and only valid inside the section; mutate them only through the Tx methods.
type Tx struct {
	store    *Store
	readOnly bool

	undo    []func()
	audited []models.AppLogEntry
	touched []string
}

func (tx *Tx) mustWrite() {
	if tx.readOnly {
		panic("store: mutation inside a read-only transaction")
	}
}

func (tx *Tx) onRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.audited = nil
	tx.touched = nil
}

func (tx *Tx) commit() Commit {
	c := Commit{AuditEntries: tx.audited}

	seen := make(map[string]bool, len(tx.touched))
	for _, id := range tx.touched {
		if seen[id] {
			continue
		}
		seen[id] = true
		if e := tx.findDelivery(id); e != nil {
			c.Deliveries = append(c.Deliveries, *e.Clone())
		}
	}
	return c
}

// Now returns the store clock's current time
func (tx *Tx) Now() time.Time {
	return tx.store.clock()
}

// NewID returns a fresh identifier
func (tx *Tx) NewID() string {
	return tx.store.newID()
}

// Projects returns all projects in creation order
func (tx *Tx) Projects() []*models.Project {
	return tx.store.projects
}

// Project returns the project with the given id
func (tx *Tx) Project(id string) (*models.Project, error) {
	for _, p := range tx.store.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrProjectNotFound
}

// Lead resolves a lead inside its project
func (tx *Tx) Lead(projectID, leadID string) (*models.Project, *models.Lead, error) {
	p, err := tx.Project(projectID)
	if err != nil {
		return nil, nil, err
	}
	l := p.FindLead(leadID)
	if l == nil {
		return p, nil, ErrLeadNotFound
	}
	return p, l, nil
}

// AddProject appends a project
func (tx *Tx) AddProject(p *models.Project) {
	tx.mustWrite()
	s := tx.store
	n := len(s.projects)
	s.projects = append(s.projects, p)
	tx.onRollback(func() { s.projects = s.projects[:n] })
}

// UpdateLead applies fn to the lead identified by projectID and leadID
func (tx *Tx) UpdateLead(projectID, leadID string, fn func(l *models.Lead)) error {
	tx.mustWrite()
	_, lead, err := tx.Lead(projectID, leadID)
	if err != nil {
		return err
	}
	before := lead.Clone()
	tx.onRollback(func() { *lead = *before })
	fn(lead)
	return nil
}

// Campaigns returns all campaigns in insertion order
func (tx *Tx) Campaigns() []*models.Campaign {
	return tx.store.campaigns
}

// Campaign returns the campaign with the given id
func (tx *Tx) Campaign(id string) (*models.Campaign, error) {
	if i := tx.campaignIndex(id); i >= 0 {
		return tx.store.campaigns[i], nil
	}
	return nil, ErrCampaignNotFound
}

func (tx *Tx) campaignIndex(id string) int {
	for i, c := range tx.store.campaigns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// PutCampaign replaces the campaign with the same id or appends it. It reports whether it was appended.
func (tx *Tx) PutCampaign(c *models.Campaign) bool {
	tx.mustWrite()
	s := tx.store
	if i := tx.campaignIndex(c.ID); i >= 0 {
		prev := s.campaigns[i]
		s.campaigns[i] = c
		tx.onRollback(func() { s.campaigns[i] = prev })
		return false
	}
	n := len(s.campaigns)
	s.campaigns = append(s.campaigns, c)
	tx.onRollback(func() { s.campaigns = s.campaigns[:n] })
	return true
}

// UpdateCampaign applies fn to the stored campaign
func (tx *Tx) UpdateCampaign(id string, fn func(c *models.Campaign)) error {
	tx.mustWrite()
	c, err := tx.Campaign(id)
	if err != nil {
		return err
	}
	before := c.Clone()
	tx.onRollback(func() { *c = *before })
	fn(c)
	return nil
}

// RemoveCampaign deletes the campaign and returns it, or nil if it did not exist
func (tx *Tx) RemoveCampaign(id string) *models.Campaign {
	tx.mustWrite()
	s := tx.store
	i := tx.campaignIndex(id)
	if i < 0 {
		return nil
	}
	prev := append([]*models.Campaign(nil), s.campaigns...)
	removed := s.campaigns[i]
	s.campaigns = append(s.campaigns[:i:i], s.campaigns[i+1:]...)
	tx.onRollback(func() { s.campaigns = prev })
	return removed
}

// Deliveries returns the delivery log in insertion order
func (tx *Tx) Deliveries() []*models.DeliveryLogEntry {
	return tx.store.deliveries
}

// Delivery returns the entry with the given id
func (tx *Tx) Delivery(id string) (*models.DeliveryLogEntry, error) {
	if e := tx.findDelivery(id); e != nil {
		return e, nil
	}
	return nil, ErrDeliveryNotFound
}

func (tx *Tx) findDelivery(id string) *models.DeliveryLogEntry {
	for _, e := range tx.store.deliveries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// FirstQueued returns the oldest entry still Queued, or nil
func (tx *Tx) FirstQueued() *models.DeliveryLogEntry {
	for _, e := range tx.store.deliveries {
		if e.Status == models.DeliveryStatusQueued {
			return e
		}
	}
	return nil
}

// QueuedCount returns the number of entries still Queued
func (tx *Tx) QueuedCount() int {
	n := 0
	for _, e := range tx.store.deliveries {
		if e.Status == models.DeliveryStatusQueued {
			n++
		}
	}
	return n
}

// AppendDelivery adds an entry to the end of the delivery log
func (tx *Tx) AppendDelivery(e *models.DeliveryLogEntry) {
	tx.mustWrite()
	s := tx.store
	n := len(s.deliveries)
	s.deliveries = append(s.deliveries, e)
	tx.touched = append(tx.touched, e.ID)
	tx.onRollback(func() { s.deliveries = s.deliveries[:n] })
}

// ResolveDelivery moves a Queued entry to its terminal status
func (tx *Tx) ResolveDelivery(id string, status models.DeliveryStatus, errMsg *string) error {
	tx.mustWrite()
	e, err := tx.Delivery(id)
	if err != nil {
		return err
	}
	before := e.Clone()
	tx.onRollback(func() { *e = *before })

	e.Status = status
	e.ErrorMessage = errMsg
	e.UpdatedAt = tx.Now()
	tx.touched = append(tx.touched, e.ID)
	return nil
}

// Record prepends an audit entry, evicting the oldest entries beyond capacity
func (tx *Tx) Record(severity models.Severity, action, details string) models.AppLogEntry {
	tx.mustWrite()
	tx.snapshotAudit()
	entry := models.AppLogEntry{
		ID:        tx.NewID(),
		Timestamp: tx.Now(),
		Severity:  severity,
		Action:    action,
		Details:   details,
	}
	tx.store.audit.push(entry)
	tx.audited = append(tx.audited, entry)
	return entry
}

// AuditEntries returns a copy of the audit log, newest first
func (tx *Tx) AuditEntries() []models.AppLogEntry {
	return tx.store.audit.list()
}

// ClearAudit empties the audit log
func (tx *Tx) ClearAudit() {
	tx.mustWrite()
	tx.snapshotAudit()
	tx.store.audit.clear()
}

func (tx *Tx) snapshotAudit() {
	a := tx.store.audit
	prev := a.list()
	tx.onRollback(func() { a.entries = prev })
}
