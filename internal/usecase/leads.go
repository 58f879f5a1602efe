package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// PhoneWithdrawer drops the pending calls of a phone.
type PhoneWithdrawer interface {
	WithdrawPhone(ctx context.Context, phoneID string) (int, error)
}

// LeadsDeps wires the lead graph storage. Calls is optional.
type LeadsDeps struct {
	Properties ports.PropertyRepository
	Calls      PhoneWithdrawer
	Clock      Clock
	Logger     *slog.Logger
}

// Leads manages properties and the people and numbers attached to them.
type Leads struct {
	properties ports.PropertyRepository
	calls      PhoneWithdrawer
	now        Clock
	logger     *slog.Logger
}

// NewLeads constructs the lead service.
func NewLeads(deps LeadsDeps) *Leads {
	return &Leads{
		properties: deps.Properties,
		calls:      deps.Calls,
		now:        orClock(deps.Clock),
		logger:     orLogger(deps.Logger, "leads"),
	}
}

func (l *Leads) ListProperties(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	props, err := l.properties.ListProperties(ctx, filter)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []domain.Property{}
	}
	return props, nil
}

// GetProperty returns the property with its full contact graph.
func (l *Leads) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := l.properties.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	contacts, err := l.properties.ListContactGraph(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("load contacts: %w", err)
	}
	p.Contacts = contacts
	return p, nil
}

func (l *Leads) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p.Address = strings.TrimSpace(p.Address)
	if p.Address == "" {
		return domain.Property{}, fmt.Errorf("address is required: %w", domain.ErrInvalid)
	}
	if p.EstimatedValue < 0 {
		return domain.Property{}, fmt.Errorf("estimated value must not be negative: %w", domain.ErrInvalid)
	}

	now := l.now()
	p.ID = newID()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Contacts = nil
	if err := l.properties.CreateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	l.logger.Info("property created", "property_id", p.ID)
	return p, nil
}

func (l *Leads) UpdateProperty(ctx context.Context, id string, patch domain.PropertyPatch) (domain.Property, error) {
	p, err := l.properties.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	patch.Apply(&p)
	if strings.TrimSpace(p.Address) == "" {
		return domain.Property{}, fmt.Errorf("address is required: %w", domain.ErrInvalid)
	}
	p.UpdatedAt = l.now()
	if err := l.properties.UpdateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

// DeleteProperty removes the property and everything hanging off it.
func (l *Leads) DeleteProperty(ctx context.Context, id string) error {
	if err := l.properties.DeleteProperty(ctx, id); err != nil {
		return err
	}
	l.logger.Info("property deleted", "property_id", id)
	return nil
}

func (l *Leads) AddContact(ctx context.Context, propertyID string, c domain.Contact) (domain.Contact, error) {
	if _, err := l.properties.GetProperty(ctx, propertyID); err != nil {
		return domain.Contact{}, err
	}
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if c.FullName() == "" {
		return domain.Contact{}, fmt.Errorf("contact name is required: %w", domain.ErrInvalid)
	}

	now := l.now()
	c.ID = newID()
	c.PropertyID = propertyID
	c.CreatedAt, c.UpdatedAt = now, now
	c.Phones, c.Emails = nil, nil
	if err := l.properties.CreateContact(ctx, c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (l *Leads) UpdateContact(ctx context.Context, id string, patch domain.ContactPatch) (domain.Contact, error) {
	c, err := l.properties.GetContact(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	patch.Apply(&c)
	if strings.TrimSpace(c.FullName()) == "" {
		return domain.Contact{}, fmt.Errorf("contact name is required: %w", domain.ErrInvalid)
	}
	c.UpdatedAt = l.now()
	if err := l.properties.UpdateContact(ctx, c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

// DeleteContact removes the contact and withdraws its phones from the queue.
func (l *Leads) DeleteContact(ctx context.Context, id string) error {
	c, err := l.properties.GetContact(ctx, id)
	if err != nil {
		return err
	}
	contacts, err := l.properties.ListContactGraph(ctx, c.PropertyID)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	if err := l.properties.DeleteContact(ctx, id); err != nil {
		return err
	}
	for _, graph := range contacts {
		if graph.ID != id {
			continue
		}
		for _, ph := range graph.Phones {
			l.withdraw(ctx, ph.ID)
		}
	}
	return nil
}

func (l *Leads) AddPhone(ctx context.Context, contactID string, ph domain.Phone) (domain.Phone, error) {
	if _, err := l.properties.GetContact(ctx, contactID); err != nil {
		return domain.Phone{}, err
	}
	number, err := normalizePhone(ph.Number)
	if err != nil {
		return domain.Phone{}, err
	}

	now := l.now()
	ph.ID = newID()
	ph.ContactID = contactID
	ph.Number = number
	ph.CreatedAt, ph.UpdatedAt = now, now
	if err := l.properties.CreatePhone(ctx, ph); err != nil {
		return domain.Phone{}, err
	}
	return ph, nil
}

// UpdatePhone applies the patch. Flagging a number DNC cancels its queued
// calls.
func (l *Leads) UpdatePhone(ctx context.Context, id string, patch domain.PhonePatch) (domain.Phone, error) {
	ph, err := l.properties.GetPhone(ctx, id)
	if err != nil {
		return domain.Phone{}, err
	}
	patch.Apply(&ph)
	if ph.Number, err = normalizePhone(ph.Number); err != nil {
		return domain.Phone{}, err
	}
	ph.UpdatedAt = l.now()
	if err := l.properties.UpdatePhone(ctx, ph); err != nil {
		return domain.Phone{}, err
	}
	if patch.IsDNC != nil && *patch.IsDNC {
		l.logger.Info("phone flagged do-not-call", "phone_id", id)
		l.withdraw(ctx, id)
	}
	return ph, nil
}

func (l *Leads) DeletePhone(ctx context.Context, id string) error {
	if err := l.properties.DeletePhone(ctx, id); err != nil {
		return err
	}
	l.withdraw(ctx, id)
	return nil
}

// withdraw cancels queued calls for the phone. The dialer re-checks every
// phone before calling, so a failure here is only logged.
func (l *Leads) withdraw(ctx context.Context, phoneID string) {
	if l.calls == nil {
		return
	}
	if _, err := l.calls.WithdrawPhone(ctx, phoneID); err != nil {
		l.logger.Warn("withdraw phone from queue", "phone_id", phoneID, "error", err)
	}
}

func (l *Leads) AddEmail(ctx context.Context, contactID string, e domain.Email) (domain.Email, error) {
	if _, err := l.properties.GetContact(ctx, contactID); err != nil {
		return domain.Email{}, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(e.Address))
	if err != nil {
		return domain.Email{}, fmt.Errorf("email %q: %w", e.Address, domain.ErrInvalid)
	}

	e.ID = newID()
	e.ContactID = contactID
	e.Address = strings.ToLower(addr.Address)
	e.CreatedAt = l.now()
	if err := l.properties.CreateEmail(ctx, e); err != nil {
		return domain.Email{}, err
	}
	return e, nil
}

func (l *Leads) DeleteEmail(ctx context.Context, id string) error {
	return l.properties.DeleteEmail(ctx, id)
}

// normalizePhone keeps digits and a leading plus.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case strings.ContainsRune(" -().", r):
		default:
			return "", fmt.Errorf("phone number %q: %w", raw, domain.ErrInvalid)
		}
	}
	out := b.String()
	if len(strings.TrimPrefix(out, "+")) < 7 {
		return "", fmt.Errorf("phone number %q: %w", raw, domain.ErrInvalid)
	}
	return out, nil
}
