package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/prbn021/seo-app/app/services"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/prbn021/seo-app/utils"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ProjectFlow handles project ingestion, prospecting and export
type ProjectFlow interface {
	CreateProject(ctx context.Context, keyword string, leads []models.LeadInput) (*models.Project, error)
	ProspectProject(ctx context.Context, keyword string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	ExportProject(ctx context.Context, projectID string) (string, []byte, error)
}

// ProjectFlowImpl implements the project business flow
type ProjectFlowImpl struct {
	store  *store.Store
	finder services.LeadFinder
	logger logrus.FieldLogger
}

// NewProjectFlow creates a new project flow instance
func NewProjectFlow(st *store.Store, finder services.LeadFinder, logger logrus.FieldLogger) ProjectFlow {
	return &ProjectFlowImpl{
		store:  st,
		finder: finder,
		logger: defaultLogger(logger).WithField("flow", "project"),
	}
}

// CreateProject stores a project named after the keyword. Every lead starts as a New Lead
// with no engagement.
func (f *ProjectFlowImpl) CreateProject(ctx context.Context, keyword string, leads []models.LeadInput) (*models.Project, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}

	var out *models.Project
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		project := &models.Project{
			ID:        tx.NewID(),
			Name:      keyword,
			Keyword:   keyword,
			Leads:     make([]*models.Lead, 0, len(leads)),
			CreatedAt: tx.Now(),
		}
		for _, in := range leads {
			project.Leads = append(project.Leads, models.NewLead(tx.NewID(), in.CompanyName, in.URL, in.Email, in.Phone))
		}
		tx.AddProject(project)
		tx.Record(models.SeveritySuccess, models.AuditActionProjectCreated,
			fmt.Sprintf("New project %q created with %d leads.", keyword, len(leads)))

		out = project.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"project_id": out.ID,
		"leads":      len(out.Leads),
	}).Info("project created")
	return out, nil
}

// ProspectProject sources leads for the keyword and creates a project from them.
// Provider failures are recorded in the audit log and returned; they are not retried.
func (f *ProjectFlowImpl) ProspectProject(ctx context.Context, keyword string) (*models.Project, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrKeywordRequired
	}
	if f.finder == nil {
		return nil, ErrLeadFinderNotConfig
	}

	leads, err := f.finder.FindLeads(ctx, keyword)
	if err != nil {
		withRequestFields(ctx, f.logger).WithError(err).WithField("keyword", keyword).Error("lead generation failed")

		recordErr := f.store.WithTx(context.WithoutCancel(ctx), func(tx *store.Tx) error {
			tx.Record(models.SeverityError, models.AuditActionLeadGenerationFailed,
				fmt.Sprintf("Attempt to find leads for keyword %q failed. Reason: %v", keyword, err))
			return nil
		})
		if recordErr != nil {
			f.logger.WithError(recordErr).Warn("failed to record lead generation failure")
		}
		return nil, fmt.Errorf("%w. %w", ErrLeadProviderFailed, err)
	}

	return f.CreateProject(ctx, keyword, leads)
}

// ListProjects returns all projects in creation order
func (f *ProjectFlowImpl) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var out []*models.Project
	err := f.store.View(ctx, func(tx *store.Tx) error {
		for _, p := range tx.Projects() {
			out = append(out, p.Clone())
		}
		return nil
	})
	return out, err
}

// GetProject returns one project with its leads
func (f *ProjectFlowImpl) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var out *models.Project
	err := f.store.View(ctx, func(tx *store.Tx) error {
		p, err := tx.Project(projectID)
		if err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

const exportTimeLayout = "2006-01-02 15:04:05"

var (
	leadSheetHeader     = []any{"Company", "Website", "Email", "Phone", "CRM Status", "Email Status", "WhatsApp Status", "Last Contacted", "Campaign", "Step"}
	deliverySheetHeader = []any{"Created At", "Lead", "Subject", "Status", "Error", "Campaign", "Step"}
)

// ExportProject renders the project's leads and deliveries as an XLSX workbook
func (f *ProjectFlowImpl) ExportProject(ctx context.Context, projectID string) (string, []byte, error) {
	var (
		project    *models.Project
		deliveries []*models.DeliveryLogEntry
	)
	err := f.store.View(ctx, func(tx *store.Tx) error {
		p, err := tx.Project(projectID)
		if err != nil {
			return err
		}
		project = p.Clone()
		for _, e := range tx.Deliveries() {
			if e.ProjectID == projectID {
				deliveries = append(deliveries, e.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const leadSheet, deliverySheet = "Leads", "Deliveries"
	if err := xl.SetSheetName(xl.GetSheetName(0), leadSheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}
	if _, err := xl.NewSheet(deliverySheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}

	_ = xl.SetSheetRow(leadSheet, "A1", &leadSheetHeader)
	for i, lead := range project.Leads {
		campaignID, step := "", ""
		if lead.Enrollment != nil {
			campaignID = lead.Enrollment.CampaignID
			step = fmt.Sprintf("%d", lead.Enrollment.CurrentStep)
		}
		record := []any{
			lead.CompanyName,
			lead.URL,
			lead.Email,
			lead.Phone,
			string(lead.Status),
			string(lead.Engagement.Email),
			string(lead.Engagement.WhatsApp),
			utils.FormatTimePtr(lead.Engagement.LastContacted, exportTimeLayout),
			campaignID,
			step,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(leadSheet, cellRef, &record)
	}

	_ = xl.SetSheetRow(deliverySheet, "A1", &deliverySheetHeader)
	for i, e := range deliveries {
		record := []any{
			e.CreatedAt.UTC().Format(exportTimeLayout),
			e.LeadName,
			e.Subject,
			string(e.Status),
			utils.Deref(e.ErrorMessage),
			utils.Deref(e.CampaignID),
			e.Step,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(deliverySheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("project_%s.xlsx", sanitizeFilename(project.Name))
	return filename, buf.Bytes(), nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
