package person

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trustmedis/empi/internal/platform/fhir"
)

// EID is one external identifier held by a Person. SystemAssigned marks a
// generated placeholder, as opposed to an identifier sourced from a Patient
// record; Patient-sourced identifiers take precedence over placeholders.
type EID struct {
	Value          string `json:"value"`
	SystemAssigned bool   `json:"system_assigned"`
}

// Person maps to the person table: a resolved real-world identity carrying
// demographics merged from linked Patients and an ordered set of EIDs.
type Person struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FHIRID      string     `db:"fhir_id" json:"fhir_id"`
	Active      bool       `db:"active" json:"active"`
	EIDs        []EID      `db:"eids" json:"eids"`
	NameFamily  *string    `db:"name_family" json:"name_family,omitempty"`
	NameGiven   *string    `db:"name_given" json:"name_given,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	BirthDate   *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	AddressLine *string    `db:"address_line" json:"address_line,omitempty"`
	City        *string    `db:"city" json:"city,omitempty"`
	State       *string    `db:"state" json:"state,omitempty"`
	PostalCode  *string    `db:"postal_code" json:"postal_code,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	VersionID   int        `db:"version_id" json:"version_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Person) GetVersionID() int  { return p.VersionID }
func (p *Person) SetVersionID(v int) { p.VersionID = v }

// Reference returns the relative FHIR reference for this Person.
func (p *Person) Reference() string {
	return fhir.FormatReference("Person", p.FHIRID)
}

// HasEID reports whether value is among the Person's external identifiers.
func (p *Person) HasEID(value string) bool {
	for _, e := range p.EIDs {
		if e.Value == value {
			return true
		}
	}
	return false
}

// PrimaryEID returns the Person's first external identifier, or nil when the
// Person has none.
func (p *Person) PrimaryEID() *EID {
	if len(p.EIDs) == 0 {
		return nil
	}
	return &p.EIDs[0]
}

func (p *Person) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Person",
		"id":           p.FHIRID,
		"active":       p.Active,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", p.VersionID),
			LastUpdated: p.UpdatedAt,
		},
	}
	if len(p.EIDs) > 0 {
		identifiers := make([]fhir.Identifier, 0, len(p.EIDs))
		for _, e := range p.EIDs {
			use := "usual"
			if e.SystemAssigned {
				use = "secondary"
			}
			identifiers = append(identifiers, fhir.Identifier{Use: use, Value: e.Value})
		}
		result["identifier"] = identifiers
	}
	if p.NameFamily != nil || p.NameGiven != nil {
		name := fhir.HumanName{}
		if p.NameFamily != nil {
			name.Family = *p.NameFamily
		}
		if p.NameGiven != nil {
			name.Given = []string{*p.NameGiven}
		}
		result["name"] = []fhir.HumanName{name}
	}
	if p.Gender != nil {
		result["gender"] = *p.Gender
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}
	if p.AddressLine != nil || p.City != nil || p.State != nil || p.PostalCode != nil {
		addr := fhir.Address{}
		if p.AddressLine != nil {
			addr.Line = []string{*p.AddressLine}
		}
		if p.City != nil {
			addr.City = *p.City
		}
		if p.State != nil {
			addr.State = *p.State
		}
		if p.PostalCode != nil {
			addr.PostalCode = *p.PostalCode
		}
		result["address"] = []fhir.Address{addr}
	}
	var telecom []fhir.ContactPoint
	if p.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *p.Phone})
	}
	if p.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *p.Email})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}
	return result
}
