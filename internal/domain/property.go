package domain

import "time"

// Property is a lead: the real-estate record a sales prospect is attached to.
type Property struct {
	ID             string    `json:"id"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Zip            string    `json:"zip"`
	OwnerName      string    `json:"owner_name"`
	EstimatedValue float64   `json:"estimated_value"`
	Notes          string    `json:"notes"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Contacts []Contact `json:"contacts,omitempty"`
}

// Contact is a person reachable about a property.
type Contact struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Phones []Phone `json:"phones,omitempty"`
	Emails []Email `json:"emails,omitempty"`
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Phone belongs to a contact. DNC phones are never dialed.
type Phone struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Number    string    `json:"number"`
	PhoneType string    `json:"phone_type"`
	IsDNC     bool      `json:"is_dnc"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Email belongs to a contact.
type Email struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Address   string    `json:"address"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// PropertyFilter narrows property listings.
type PropertyFilter struct {
	Query  string
	Limit  int
	Offset int
}

// PropertyPatch carries optional property updates.
type PropertyPatch struct {
	Address        *string  `json:"address"`
	City           *string  `json:"city"`
	State          *string  `json:"state"`
	Zip            *string  `json:"zip"`
	OwnerName      *string  `json:"owner_name"`
	EstimatedValue *float64 `json:"estimated_value"`
	Notes          *string  `json:"notes"`
	Source         *string  `json:"source"`
}

// Apply copies the set fields onto p.
func (patch PropertyPatch) Apply(p *Property) {
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.City != nil {
		p.City = *patch.City
	}
	if patch.State != nil {
		p.State = *patch.State
	}
	if patch.Zip != nil {
		p.Zip = *patch.Zip
	}
	if patch.OwnerName != nil {
		p.OwnerName = *patch.OwnerName
	}
	if patch.EstimatedValue != nil {
		p.EstimatedValue = *patch.EstimatedValue
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.Source != nil {
		p.Source = *patch.Source
	}
}

// ContactPatch carries optional contact updates.
type ContactPatch struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Relationship *string `json:"relationship"`
}

// Apply copies the set fields onto c.
func (patch ContactPatch) Apply(c *Contact) {
	if patch.FirstName != nil {
		c.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		c.LastName = *patch.LastName
	}
	if patch.Relationship != nil {
		c.Relationship = *patch.Relationship
	}
}

// PhonePatch carries optional phone updates.
type PhonePatch struct {
	Number    *string `json:"number"`
	PhoneType *string `json:"phone_type"`
	IsDNC     *bool   `json:"is_dnc"`
}

// Apply copies the set fields onto ph.
func (patch PhonePatch) Apply(ph *Phone) {
	if patch.Number != nil {
		ph.Number = *patch.Number
	}
	if patch.PhoneType != nil {
		ph.PhoneType = *patch.PhoneType
	}
	if patch.IsDNC != nil {
		ph.IsDNC = *patch.IsDNC
	}
}
