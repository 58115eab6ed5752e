package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trustmedis/empi/internal/platform/fhir"
)

// Patient maps to the patient table: an incoming demographic record to be
// resolved against known Person identities. A Patient carries at most one
// external identifier (EID).
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FHIRID      string     `db:"fhir_id" json:"fhir_id"`
	Active      bool       `db:"active" json:"active"`
	EID         *string    `db:"eid" json:"eid,omitempty"`
	NameFamily  string     `db:"name_family" json:"name_family"`
	NameGiven   string     `db:"name_given" json:"name_given"`
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

func (p *Patient) GetVersionID() int  { return p.VersionID }
func (p *Patient) SetVersionID(v int) { p.VersionID = v }

// Reference returns the relative FHIR reference for this Patient.
func (p *Patient) Reference() string {
	return fhir.FormatReference("Patient", p.FHIRID)
}

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.FHIRID,
		"active":       p.Active,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", p.VersionID),
			LastUpdated: p.UpdatedAt,
		},
	}
	if p.NameFamily != "" || p.NameGiven != "" {
		name := fhir.HumanName{Use: "official", Family: p.NameFamily}
		if p.NameGiven != "" {
			name.Given = []string{p.NameGiven}
		}
		result["name"] = []fhir.HumanName{name}
	}
	if p.EID != nil {
		result["identifier"] = []fhir.Identifier{{Use: "usual", Value: *p.EID}}
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
