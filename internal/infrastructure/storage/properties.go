package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.PropertyRepository = (*Repository)(nil)

var propertyColumns = []string{
	"id", "address", "COALESCE(city, '')", "COALESCE(state, '')", "COALESCE(zip, '')",
	"COALESCE(owner_name, '')", "COALESCE(estimated_value, 0)", "COALESCE(notes, '')",
	"COALESCE(source, '')", "created_at", "updated_at",
}

func scanProperty(row rowScanner) (domain.Property, error) {
	var p domain.Property
	err := row.Scan(&p.ID, &p.Address, &p.City, &p.State, &p.Zip, &p.OwnerName,
		&p.EstimatedValue, &p.Notes, &p.Source, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProperties returns properties matching the free-text filter, newest first.
func (r *Repository) ListProperties(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	b := r.sb.Select(propertyColumns...).From("properties").
		OrderBy("created_at DESC", "id").
		Limit(pageLimit(filter.Limit)).
		Offset(pageOffset(filter.Offset))

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		pattern := "%" + q + "%"
		b = b.Where(sq.Or{
			sq.Expr("LOWER(address) LIKE ?", pattern),
			sq.Expr("LOWER(city) LIKE ?", pattern),
			sq.Expr("LOWER(owner_name) LIKE ?", pattern),
		})
	}

	var out []domain.Property
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		p, err := scanProperty(row)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return out, nil
}

// GetProperty loads one property without its contact graph.
func (r *Repository) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(propertyColumns...).From("properties").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Property{}, err
	}
	p, err := scanProperty(row)
	if err != nil {
		return domain.Property{}, fmt.Errorf("get property %s: %w", id, classify(err))
	}
	return p, nil
}

// CreateProperty inserts a property row.
func (r *Repository) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("properties").
		Columns("id", "address", "city", "state", "zip", "owner_name", "estimated_value", "notes", "source", "created_at", "updated_at").
		Values(p.ID, p.Address, p.City, p.State, p.Zip, p.OwnerName, p.EstimatedValue, p.Notes, p.Source, p.CreatedAt, p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// UpdateProperty overwrites the mutable property columns.
func (r *Repository) UpdateProperty(ctx context.Context, p domain.Property) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("properties").SetMap(map[string]any{
		"address":         p.Address,
		"city":            p.City,
		"state":           p.State,
		"zip":             p.Zip,
		"owner_name":      p.OwnerName,
		"estimated_value": p.EstimatedValue,
		"notes":           p.Notes,
		"source":          p.Source,
		"updated_at":      p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	return requireAffected(affected, "property", p.ID)
}

// DeleteProperty removes the property with its contacts, CRM lead and queue items.
func (r *Repository) DeleteProperty(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		contactIDs := r.sb.Select("id").From("contacts").Where(sq.Eq{"property_id": id})
		leadIDs := r.sb.Select("id").From("crm_leads").Where(sq.Eq{"property_id": id})

		steps := []sq.Sqlizer{
			r.sb.Delete("phones").Where(subquery("contact_id", contactIDs)),
			r.sb.Delete("emails").Where(subquery("contact_id", contactIDs)),
			r.sb.Delete("contacts").Where(sq.Eq{"property_id": id}),
			r.sb.Delete("crm_activities").Where(subquery("lead_id", leadIDs)),
			r.sb.Delete("crm_leads").Where(sq.Eq{"property_id": id}),
			r.sb.Delete("call_queue_items").Where(sq.Eq{"property_id": id}),
		}
		for _, step := range steps {
			if _, err := execBuilder(ctx, tx, step); err != nil {
				return fmt.Errorf("delete property %s dependents: %w", id, err)
			}
		}

		affected, err := execBuilder(ctx, tx, r.sb.Delete("properties").Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("delete property: %w", err)
		}
		return requireAffected(affected, "property", id)
	})
}

// subquery renders "column IN (<select>)" keeping placeholders in sequence.
func subquery(column string, sel sq.SelectBuilder) sq.Sqlizer {
	query, args, err := sel.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return sq.Expr("1 = 0")
	}
	return sq.Expr(column+" IN ("+query+")", args...)
}

var contactColumns = []string{
	"id", "property_id", "COALESCE(first_name, '')", "COALESCE(last_name, '')",
	"COALESCE(relationship, '')", "created_at", "updated_at",
}

func scanContact(row rowScanner) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.PropertyID, &c.FirstName, &c.LastName, &c.Relationship, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

var phoneColumns = []string{
	"id", "contact_id", "number", "COALESCE(phone_type, '')", "is_dnc", "created_at", "updated_at",
}

func scanPhone(row rowScanner) (domain.Phone, error) {
	var ph domain.Phone
	err := row.Scan(&ph.ID, &ph.ContactID, &ph.Number, &ph.PhoneType, &ph.IsDNC, &ph.CreatedAt, &ph.UpdatedAt)
	return ph, err
}

// ListContactGraph returns the property's contacts with phones and emails.
func (r *Repository) ListContactGraph(ctx context.Context, propertyID string) ([]domain.Contact, error) {
	var contacts []domain.Contact
	index := map[string]int{}
	err := queryAll(ctx, r.db, r.sb.Select(contactColumns...).From("contacts").
		Where(sq.Eq{"property_id": propertyID}).OrderBy("created_at", "id"),
		func(row rowScanner) error {
			c, err := scanContact(row)
			if err != nil {
				return err
			}
			index[c.ID] = len(contacts)
			contacts = append(contacts, c)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if len(contacts) == 0 {
		return contacts, nil
	}

	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}

	err = queryAll(ctx, r.db, r.sb.Select(phoneColumns...).From("phones").
		Where(sq.Eq{"contact_id": ids}).OrderBy("created_at", "id"),
		func(row rowScanner) error {
			ph, err := scanPhone(row)
			if err != nil {
				return err
			}
			i := index[ph.ContactID]
			contacts[i].Phones = append(contacts[i].Phones, ph)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}

	err = queryAll(ctx, r.db, r.sb.Select("id", "contact_id", "address", "is_primary", "created_at").From("emails").
		Where(sq.Eq{"contact_id": ids}).OrderBy("created_at", "id"),
		func(row rowScanner) error {
			var e domain.Email
			if err := row.Scan(&e.ID, &e.ContactID, &e.Address, &e.IsPrimary, &e.CreatedAt); err != nil {
				return err
			}
			i := index[e.ContactID]
			contacts[i].Emails = append(contacts[i].Emails, e)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}

	return contacts, nil
}

// GetContact loads one contact row.
func (r *Repository) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(contactColumns...).From("contacts").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Contact{}, err
	}
	c, err := scanContact(row)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("get contact %s: %w", id, classify(err))
	}
	return c, nil
}

// CreateContact inserts a contact row.
func (r *Repository) CreateContact(ctx context.Context, c domain.Contact) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("contacts").
		Columns("id", "property_id", "first_name", "last_name", "relationship", "created_at", "updated_at").
		Values(c.ID, c.PropertyID, c.FirstName, c.LastName, c.Relationship, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// UpdateContact overwrites the mutable contact columns.
func (r *Repository) UpdateContact(ctx context.Context, c domain.Contact) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("contacts").SetMap(map[string]any{
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"relationship": c.Relationship,
		"updated_at":   c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID}))
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return requireAffected(affected, "contact", c.ID)
}

// DeleteContact removes a contact with its phones and emails.
func (r *Repository) DeleteContact(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"phones", "emails"} {
			if _, err := execBuilder(ctx, tx, r.sb.Delete(table).Where(sq.Eq{"contact_id": id})); err != nil {
				return fmt.Errorf("delete contact %s %s: %w", id, table, err)
			}
		}
		affected, err := execBuilder(ctx, tx, r.sb.Delete("contacts").Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
		return requireAffected(affected, "contact", id)
	})
}

// GetPhone loads one phone row.
func (r *Repository) GetPhone(ctx context.Context, id string) (domain.Phone, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(phoneColumns...).From("phones").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Phone{}, err
	}
	ph, err := scanPhone(row)
	if err != nil {
		return domain.Phone{}, fmt.Errorf("get phone %s: %w", id, classify(err))
	}
	return ph, nil
}

// CreatePhone inserts a phone row.
func (r *Repository) CreatePhone(ctx context.Context, ph domain.Phone) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("phones").
		Columns("id", "contact_id", "number", "phone_type", "is_dnc", "created_at", "updated_at").
		Values(ph.ID, ph.ContactID, ph.Number, ph.PhoneType, ph.IsDNC, ph.CreatedAt, ph.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert phone: %w", err)
	}
	return nil
}

// UpdatePhone overwrites the mutable phone columns.
func (r *Repository) UpdatePhone(ctx context.Context, ph domain.Phone) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("phones").SetMap(map[string]any{
		"number":     ph.Number,
		"phone_type": ph.PhoneType,
		"is_dnc":     ph.IsDNC,
		"updated_at": ph.UpdatedAt,
	}).Where(sq.Eq{"id": ph.ID}))
	if err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	return requireAffected(affected, "phone", ph.ID)
}

// DeletePhone removes a phone row.
func (r *Repository) DeletePhone(ctx context.Context, id string) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Delete("phones").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete phone: %w", err)
	}
	return requireAffected(affected, "phone", id)
}

// CreateEmail inserts an email row.
func (r *Repository) CreateEmail(ctx context.Context, e domain.Email) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("emails").
		Columns("id", "contact_id", "address", "is_primary", "created_at").
		Values(e.ID, e.ContactID, e.Address, e.IsPrimary, e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

// DeleteEmail removes an email row.
func (r *Repository) DeleteEmail(ctx context.Context, id string) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Delete("emails").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	return requireAffected(affected, "email", id)
}
