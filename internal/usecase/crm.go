package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// CRMDeps wires pipeline storage and the chart renderer.
type CRMDeps struct {
	Leads      ports.CRMRepository
	Properties ports.PropertyRepository
	Chart      ports.ChartRenderer
	Clock      Clock
	Logger     *slog.Logger
}

// CRM manages the sales pipeline on top of properties.
type CRM struct {
	leads      ports.CRMRepository
	properties ports.PropertyRepository
	chart      ports.ChartRenderer
	now        Clock
	logger     *slog.Logger
}

// NewCRM constructs the CRM service.
func NewCRM(deps CRMDeps) *CRM {
	return &CRM{
		leads:      deps.Leads,
		properties: deps.Properties,
		chart:      deps.Chart,
		now:        orClock(deps.Clock),
		logger:     orLogger(deps.Logger, "crm"),
	}
}

// NewLeadInput is the payload for creating a CRM lead.
type NewLeadInput struct {
	PropertyID   string     `json:"property_id"`
	Status       string     `json:"status"`
	AssignedTo   string     `json:"assigned_to"`
	Notes        string     `json:"notes"`
	NextFollowUp *time.Time `json:"next_follow_up"`
}

func (c *CRM) ListLeads(ctx context.Context, status string, limit, offset int) ([]domain.CRMLead, error) {
	var parsed domain.LeadStatus
	if strings.TrimSpace(status) != "" {
		var err error
		if parsed, err = domain.ParseLeadStatus(status); err != nil {
			return nil, err
		}
	}
	leads, err := c.leads.ListLeads(ctx, parsed, limit, offset)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []domain.CRMLead{}
	}
	return leads, nil
}

func (c *CRM) GetLead(ctx context.Context, id string) (domain.CRMLead, error) {
	return c.leads.GetLead(ctx, id)
}

// CreateLead opens the pipeline row for a property. Status defaults to new.
func (c *CRM) CreateLead(ctx context.Context, in NewLeadInput, actor string) (domain.CRMLead, error) {
	if strings.TrimSpace(in.PropertyID) == "" {
		return domain.CRMLead{}, fmt.Errorf("property_id is required: %w", domain.ErrInvalid)
	}
	status := domain.LeadNew
	if strings.TrimSpace(in.Status) != "" {
		var err error
		if status, err = domain.ParseLeadStatus(in.Status); err != nil {
			return domain.CRMLead{}, err
		}
	}
	if _, err := c.properties.GetProperty(ctx, in.PropertyID); err != nil {
		return domain.CRMLead{}, err
	}

	now := c.now()
	lead := domain.CRMLead{
		ID:           newID(),
		PropertyID:   in.PropertyID,
		Status:       status,
		AssignedTo:   in.AssignedTo,
		Notes:        in.Notes,
		NextFollowUp: in.NextFollowUp,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.leads.CreateLead(ctx, lead); err != nil {
		return domain.CRMLead{}, err
	}
	c.logger.Info("crm lead created", "lead_id", lead.ID, "property_id", lead.PropertyID, "actor", actor)
	return lead, nil
}

// UpdateLead applies the patch and records a status_change activity when
// the status moves.
func (c *CRM) UpdateLead(ctx context.Context, id string, patch domain.CRMLeadPatch, actor string) (domain.CRMLead, error) {
	lead, err := c.leads.GetLead(ctx, id)
	if err != nil {
		return domain.CRMLead{}, err
	}

	previous := lead.Status
	if patch.Status != nil {
		if lead.Status, err = domain.ParseLeadStatus(*patch.Status); err != nil {
			return domain.CRMLead{}, err
		}
	}
	if patch.AssignedTo != nil {
		lead.AssignedTo = *patch.AssignedTo
	}
	if patch.Notes != nil {
		lead.Notes = *patch.Notes
	}
	if patch.NextFollowUp != nil {
		t := patch.NextFollowUp.UTC()
		lead.NextFollowUp = &t
	}

	now := c.now()
	lead.UpdatedAt = now
	if err := c.leads.UpdateLead(ctx, lead); err != nil {
		return domain.CRMLead{}, err
	}

	if lead.Status != previous {
		if err := c.addActivity(ctx, lead.ID, domain.ActivityStatusChange, statusChangeBody(previous, lead.Status), actor, now); err != nil {
			return domain.CRMLead{}, err
		}
	}
	return lead, nil
}

func (c *CRM) DeleteLead(ctx context.Context, id string) error {
	return c.leads.DeleteLead(ctx, id)
}

func (c *CRM) ListActivities(ctx context.Context, leadID string) ([]domain.CRMActivity, error) {
	if _, err := c.leads.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	activities, err := c.leads.ListActivities(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []domain.CRMActivity{}
	}
	return activities, nil
}

// AddActivity appends a manual timeline entry.
func (c *CRM) AddActivity(ctx context.Context, leadID, kind, body, actor string) (domain.CRMActivity, error) {
	parsed, err := domain.ParseActivityKind(kind)
	if err != nil {
		return domain.CRMActivity{}, err
	}
	if strings.TrimSpace(body) == "" {
		return domain.CRMActivity{}, fmt.Errorf("activity body is required: %w", domain.ErrInvalid)
	}
	if _, err := c.leads.GetLead(ctx, leadID); err != nil {
		return domain.CRMActivity{}, err
	}

	activity := domain.CRMActivity{
		ID:        newID(),
		LeadID:    leadID,
		Kind:      parsed,
		Body:      body,
		CreatedBy: actor,
		CreatedAt: c.now(),
	}
	if err := c.leads.CreateActivity(ctx, activity); err != nil {
		return domain.CRMActivity{}, err
	}
	return activity, nil
}

// LogContact records an automatic touchpoint on the property's lead and
// moves a new lead to contacted. It reports false when the property has
// no lead.
func (c *CRM) LogContact(ctx context.Context, propertyID string, kind domain.ActivityKind, body, actor string) (bool, error) {
	if propertyID == "" {
		return false, nil
	}
	lead, err := c.leads.GetLeadByProperty(ctx, propertyID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load lead for property %s: %w", propertyID, err)
	}

	now := c.now()
	if err := c.addActivity(ctx, lead.ID, kind, body, actor, now); err != nil {
		return true, err
	}

	if lead.Status == domain.LeadNew {
		lead.Status = domain.LeadContacted
		lead.UpdatedAt = now
		if err := c.leads.UpdateLead(ctx, lead); err != nil {
			return true, fmt.Errorf("promote lead %s: %w", lead.ID, err)
		}
		if err := c.addActivity(ctx, lead.ID, domain.ActivityStatusChange, statusChangeBody(domain.LeadNew, domain.LeadContacted), actor, now); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Stats counts leads per status; every status is present.
func (c *CRM) Stats(ctx context.Context) (domain.PipelineStats, error) {
	counts, err := c.leads.CountLeadsByStatus(ctx)
	if err != nil {
		return domain.PipelineStats{}, err
	}
	stats := domain.PipelineStats{ByStatus: make(map[domain.LeadStatus]int, len(domain.LeadStatuses))}
	for _, s := range domain.LeadStatuses {
		stats.ByStatus[s] = counts[s]
		stats.Total += counts[s]
	}
	return stats, nil
}

// RenderStats draws the pipeline chart into w.
func (c *CRM) RenderStats(ctx context.Context, w io.Writer) error {
	if c.chart == nil {
		return fmt.Errorf("chart renderer not configured")
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	return c.chart.RenderPipeline(w, stats)
}

func (c *CRM) addActivity(ctx context.Context, leadID string, kind domain.ActivityKind, body, actor string, at time.Time) error {
	err := c.leads.CreateActivity(ctx, domain.CRMActivity{
		ID:        newID(),
		LeadID:    leadID,
		Kind:      kind,
		Body:      body,
		CreatedBy: actor,
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("record %s activity: %w", kind, err)
	}
	return nil
}

func statusChangeBody(from, to domain.LeadStatus) string {
	return fmt.Sprintf("status changed from %s to %s", from, to)
}
