package testing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/utils"
)

// TestFixtures provides helper methods for creating archive rows
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// NewDeliveryEntry builds a queued delivery entry for the given project without storing it
func NewDeliveryEntry(projectID string, createdAt time.Time) *models.DeliveryLogEntry {
	leadID := uuid.NewString()
	return &models.DeliveryLogEntry{
		ID:          uuid.NewString(),
		LeadID:      leadID,
		LeadName:    "Acme " + leadID[:8],
		ProjectID:   projectID,
		ProjectName: "plumbers",
		Subject:     "Hello",
		Status:      models.DeliveryStatusQueued,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// NewAppLogEntry builds an audit entry without storing it
func NewAppLogEntry(severity models.Severity, action string, ts time.Time) *models.AppLogEntry {
	return &models.AppLogEntry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Severity:  severity,
		Action:    action,
		Details:   fmt.Sprintf("%s at %s", action, ts.Format(time.RFC3339)),
	}
}

// CreateDeliveryEntries stores n queued entries for a project, one second apart
func (tf *TestFixtures) CreateDeliveryEntries(projectID string, n int) ([]*models.DeliveryLogEntry, error) {
	base := utils.UTCNow().Add(-time.Duration(n) * time.Second)
	entries := make([]*models.DeliveryLogEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, NewDeliveryEntry(projectID, base.Add(time.Duration(i)*time.Second)))
	}
	if err := tf.DB.DB.Create(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to insert delivery entries: %w", err)
	}
	return entries, nil
}

// CreateAppLogEntry stores one audit entry
func (tf *TestFixtures) CreateAppLogEntry(severity models.Severity, action string, ts time.Time) (*models.AppLogEntry, error) {
	entry := NewAppLogEntry(severity, action, ts)
	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return entry, nil
}
