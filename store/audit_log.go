package store

import "github.com/prbn021/seo-app/models"

// auditLog keeps the most recent entries, newest first
type auditLog struct {
	entries  []models.AppLogEntry
	capacity int
}

func newAuditLog(capacity int) *auditLog {
	return &auditLog{
		entries:  make([]models.AppLogEntry, 0, capacity),
		capacity: capacity,
	}
}

func (a *auditLog) push(e models.AppLogEntry) {
	n := len(a.entries) + 1
	if n > a.capacity {
		n = a.capacity
	}
	next := make([]models.AppLogEntry, n)
	next[0] = e
	copy(next[1:], a.entries)
	a.entries = next
}

func (a *auditLog) list() []models.AppLogEntry {
	return append([]models.AppLogEntry(nil), a.entries...)
}

func (a *auditLog) clear() {
	a.entries = nil
}
