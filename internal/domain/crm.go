package domain

import (
	"fmt"
	"strings"
	"time"
)

// LeadStatus tracks where a property sits in the sales pipeline.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadInterested  LeadStatus = "interested"
	LeadAppointment LeadStatus = "appointment"
	LeadClosed      LeadStatus = "closed"
	LeadDead        LeadStatus = "dead"
)

// LeadStatuses lists pipeline stages in display order.
var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadInterested, LeadAppointment, LeadClosed, LeadDead}

// ParseLeadStatus validates a raw status string.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	s := LeadStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range LeadStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("lead status %q: %w", raw, ErrInvalid)
}

// CRMLead is the pipeline row for one property.
type CRMLead struct {
	ID           string     `json:"id"`
	PropertyID   string     `json:"property_id"`
	Status       LeadStatus `json:"status"`
	AssignedTo   string     `json:"assigned_to"`
	Notes        string     `json:"notes"`
	NextFollowUp *time.Time `json:"next_follow_up,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ActivityKind classifies CRM activity rows.
type ActivityKind string

const (
	ActivityCall         ActivityKind = "call"
	ActivityNote         ActivityKind = "note"
	ActivityEmail        ActivityKind = "email"
	ActivitySMS          ActivityKind = "sms"
	ActivityStatusChange ActivityKind = "status_change"
)

// ParseActivityKind validates a raw activity kind.
func ParseActivityKind(raw string) (ActivityKind, error) {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case ActivityCall, ActivityNote, ActivityEmail, ActivitySMS, ActivityStatusChange:
		return k, nil
	}
	return "", fmt.Errorf("activity kind %q: %w", raw, ErrInvalid)
}

// CRMActivity is a timeline entry attached to a CRM lead.
type CRMActivity struct {
	ID        string       `json:"id"`
	LeadID    string       `json:"lead_id"`
	Kind      ActivityKind `json:"kind"`
	Body      string       `json:"body"`
	CreatedBy string       `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}

// CRMLeadPatch carries optional CRM lead updates.
type CRMLeadPatch struct {
	Status       *string    `json:"status"`
	AssignedTo   *string    `json:"assigned_to"`
	Notes        *string    `json:"notes"`
	NextFollowUp *time.Time `json:"next_follow_up"`
}

// PipelineStats counts CRM leads per status.
type PipelineStats struct {
	Total    int                `json:"total"`
	ByStatus map[LeadStatus]int `json:"by_status"`
}
