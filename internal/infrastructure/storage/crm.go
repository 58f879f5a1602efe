package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.CRMRepository = (*Repository)(nil)

var leadColumns = []string{
	"id", "property_id", "status", "COALESCE(assigned_to, '')", "COALESCE(notes, '')",
	"next_follow_up", "created_at", "updated_at",
}

func scanLead(row rowScanner) (domain.CRMLead, error) {
	var (
		lead     domain.CRMLead
		status   string
		followUp sql.NullTime
	)
	err := row.Scan(&lead.ID, &lead.PropertyID, &status, &lead.AssignedTo, &lead.Notes, &followUp, &lead.CreatedAt, &lead.UpdatedAt)
	lead.Status = domain.LeadStatus(status)
	lead.NextFollowUp = timePtr(followUp)
	return lead, err
}

// ListLeads returns CRM leads, optionally filtered by status, most recently updated first.
func (r *Repository) ListLeads(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.CRMLead, error) {
	b := r.sb.Select(leadColumns...).From("crm_leads").
		OrderBy("updated_at DESC", "id").
		Limit(pageLimit(limit)).
		Offset(pageOffset(offset))
	if status != "" {
		b = b.Where(sq.Eq{"status": string(status)})
	}

	var out []domain.CRMLead
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		lead, err := scanLead(row)
		if err != nil {
			return err
		}
		out = append(out, lead)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list crm leads: %w", err)
	}
	return out, nil
}

// GetLead loads a CRM lead by id.
func (r *Repository) GetLead(ctx context.Context, id string) (domain.CRMLead, error) {
	return r.getLeadWhere(ctx, sq.Eq{"id": id}, id)
}

// GetLeadByProperty loads the CRM lead tracking a property.
func (r *Repository) GetLeadByProperty(ctx context.Context, propertyID string) (domain.CRMLead, error) {
	return r.getLeadWhere(ctx, sq.Eq{"property_id": propertyID}, propertyID)
}

func (r *Repository) getLeadWhere(ctx context.Context, where sq.Eq, key string) (domain.CRMLead, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(leadColumns...).From("crm_leads").Where(where))
	if err != nil {
		return domain.CRMLead{}, err
	}
	lead, err := scanLead(row)
	if err != nil {
		return domain.CRMLead{}, fmt.Errorf("get crm lead %s: %w", key, classify(err))
	}
	return lead, nil
}

// CreateLead inserts a CRM lead; a second lead for the same property is a conflict.
func (r *Repository) CreateLead(ctx context.Context, lead domain.CRMLead) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("crm_leads").
		Columns("id", "property_id", "status", "assigned_to", "notes", "next_follow_up", "created_at", "updated_at").
		Values(lead.ID, lead.PropertyID, string(lead.Status), lead.AssignedTo, lead.Notes, nullTime(lead.NextFollowUp), lead.CreatedAt, lead.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert crm lead: %w", err)
	}
	return nil
}

// UpdateLead overwrites the mutable lead columns.
func (r *Repository) UpdateLead(ctx context.Context, lead domain.CRMLead) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("crm_leads").SetMap(map[string]any{
		"status":         string(lead.Status),
		"assigned_to":    lead.AssignedTo,
		"notes":          lead.Notes,
		"next_follow_up": nullTime(lead.NextFollowUp),
		"updated_at":     lead.UpdatedAt,
	}).Where(sq.Eq{"id": lead.ID}))
	if err != nil {
		return fmt.Errorf("update crm lead: %w", err)
	}
	return requireAffected(affected, "crm lead", lead.ID)
}

// DeleteLead removes a lead and its activities.
func (r *Repository) DeleteLead(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, r.sb.Delete("crm_activities").Where(sq.Eq{"lead_id": id})); err != nil {
			return fmt.Errorf("delete crm activities: %w", err)
		}
		affected, err := execBuilder(ctx, tx, r.sb.Delete("crm_leads").Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("delete crm lead: %w", err)
		}
		return requireAffected(affected, "crm lead", id)
	})
}

// CountLeadsByStatus groups CRM leads by status.
func (r *Repository) CountLeadsByStatus(ctx context.Context) (map[domain.LeadStatus]int, error) {
	counts := map[domain.LeadStatus]int{}
	err := queryAll(ctx, r.db, r.sb.Select("status", "COUNT(*)").From("crm_leads").GroupBy("status"),
		func(row rowScanner) error {
			var (
				status string
				n      int
			)
			if err := row.Scan(&status, &n); err != nil {
				return err
			}
			counts[domain.LeadStatus(status)] = n
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("count crm leads: %w", err)
	}
	return counts, nil
}

// ListActivities returns the lead timeline, newest first.
func (r *Repository) ListActivities(ctx context.Context, leadID string) ([]domain.CRMActivity, error) {
	var out []domain.CRMActivity
	err := queryAll(ctx, r.db, r.sb.Select("id", "lead_id", "kind", "COALESCE(body, '')", "COALESCE(created_by, '')", "created_at").
		From("crm_activities").Where(sq.Eq{"lead_id": leadID}).OrderBy("created_at DESC", "id"),
		func(row rowScanner) error {
			var (
				a    domain.CRMActivity
				kind string
			)
			if err := row.Scan(&a.ID, &a.LeadID, &kind, &a.Body, &a.CreatedBy, &a.CreatedAt); err != nil {
				return err
			}
			a.Kind = domain.ActivityKind(kind)
			out = append(out, a)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list crm activities: %w", err)
	}
	return out, nil
}

// CreateActivity inserts a timeline entry.
func (r *Repository) CreateActivity(ctx context.Context, a domain.CRMActivity) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("crm_activities").
		Columns("id", "lead_id", "kind", "body", "created_by", "created_at").
		Values(a.ID, a.LeadID, string(a.Kind), a.Body, a.CreatedBy, a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert crm activity: %w", err)
	}
	return nil
}
