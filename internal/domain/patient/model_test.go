package patient

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trustmedis/empi/internal/platform/fhir"
)

func TestPatientToFHIR(t *testing.T) {
	bd := time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)
	p := Patient{
		ID:         uuid.New(),
		FHIRID:     "pat-1",
		Active:     true,
		EID:        strp("MRN-1"),
		NameFamily: "Doe",
		NameGiven:  "Jane",
		Gender:     strp("female"),
		BirthDate:  &bd,
		City:       strp("Springfield"),
		VersionID:  2,
	}

	res := p.ToFHIR()
	if res["resourceType"] != "Patient" || res["id"] != "pat-1" {
		t.Errorf("resource header wrong: %v %v", res["resourceType"], res["id"])
	}
	if res["birthDate"] != "1990-05-01" {
		t.Errorf("birthDate = %v", res["birthDate"])
	}
	names := res["name"].([]fhir.HumanName)
	if names[0].Family != "Doe" || names[0].Given[0] != "Jane" {
		t.Errorf("name = %+v", names[0])
	}
	idents := res["identifier"].([]fhir.Identifier)
	if idents[0].Value != "MRN-1" {
		t.Errorf("identifier = %+v", idents[0])
	}
}

func TestPatientReference(t *testing.T) {
	p := Patient{FHIRID: "pat-1"}
	if got := p.Reference(); got != "Patient/pat-1" {
		t.Errorf("Reference() = %q", got)
	}
}
