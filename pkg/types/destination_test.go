package types

import (
	"testing"

	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

func TestDestinationKeyIgnoresCaseAndSpacing(t *testing.T) {
	a := Destination{CountryName: "Nigeria", StateName: "Lagos", StateCode: "LA", LGAName: "Ikeja"}
	b := Destination{CountryName: " nigeria", StateName: "LAGOS ", StateCode: "la", LGAName: "ikeja"}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q and %q", a.Key(), b.Key())
	}

	c := b
	c.LGAName = "Surulere"
	if a.Key() == c.Key() {
		t.Fatalf("different LGA should change the key")
	}
}

func TestShippingAddressScanAcceptsStringAndBytes(t *testing.T) {
	raw := `{"countryName":"Nigeria","stateName":"Lagos","stateCode":"LA","lgaName":"Ikeja","fullName":"Ada","phone":"0801","line1":"1 Allen Ave"}`

	var fromString ShippingAddress
	if err := fromString.Scan(raw); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString.StateCode != "LA" || fromString.Line1 != "1 Allen Ave" {
		t.Fatalf("unexpected address %+v", fromString)
	}

	var fromBytes ShippingAddress
	if err := fromBytes.Scan([]byte(raw)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if fromBytes.Destination != fromString.Destination {
		t.Fatalf("expected identical destinations")
	}

	if err := fromBytes.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported source")
	}
}

func TestSelectedAttributesNilValueIsEmptyArray(t *testing.T) {
	var attrs SelectedAttributes
	v, err := attrs.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if string(v.([]byte)) != "[]" {
		t.Fatalf("expected empty array, got %s", v)
	}

	if err := attrs.Scan(`[{"name":"Size","value":"XL"}]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(attrs) != 1 || attrs[0] != (pricing.Attribute{Name: "Size", Value: "XL"}) {
		t.Fatalf("unexpected attrs %+v", attrs)
	}
}
