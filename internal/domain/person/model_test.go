package person

import (
	"testing"

	"github.com/trustmedis/empi/internal/platform/fhir"
)

func strp(s string) *string { return &s }

func TestHasEID(t *testing.T) {
	p := Person{EIDs: []EID{{Value: "MRN-1"}, {Value: "sys-1", SystemAssigned: true}}}

	if !p.HasEID("MRN-1") || !p.HasEID("sys-1") {
		t.Error("expected both identifiers present")
	}
	if p.HasEID("MRN-2") {
		t.Error("unexpected identifier hit")
	}
}

func TestPrimaryEID(t *testing.T) {
	empty := Person{}
	if empty.PrimaryEID() != nil {
		t.Error("person without eids has no primary")
	}

	p := Person{EIDs: []EID{{Value: "first"}, {Value: "second"}}}
	if got := p.PrimaryEID(); got == nil || got.Value != "first" {
		t.Errorf("PrimaryEID() = %+v", got)
	}
}

func TestPersonToFHIRIdentifierUse(t *testing.T) {
	p := Person{
		FHIRID: "per-1",
		Active: true,
		EIDs: []EID{
			{Value: "MRN-1"},
			{Value: "sys-1", SystemAssigned: true},
		},
		NameFamily: strp("Doe"),
	}

	res := p.ToFHIR()
	if res["resourceType"] != "Person" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	idents := res["identifier"].([]fhir.Identifier)
	if len(idents) != 2 {
		t.Fatalf("expected 2 identifiers, got %d", len(idents))
	}
	if idents[0].Use != "usual" {
		t.Errorf("patient-sourced identifier use = %q", idents[0].Use)
	}
	if idents[1].Use != "secondary" {
		t.Errorf("system-assigned identifier use = %q", idents[1].Use)
	}
}
