package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Destination identifies where an order ships. LGA is the local government
// area below state level.
type Destination struct {
	CountryName string `json:"countryName" validate:"required"`
	StateName   string `json:"stateName" validate:"required"`
	StateCode   string `json:"stateCode" validate:"required"`
	LGAName     string `json:"lgaName"`
	CityName    string `json:"cityName,omitempty"`
}

// Key is a case-insensitive fingerprint used to invalidate quotes.
func (d Destination) Key() string {
	parts := []string{d.CountryName, d.StateCode, d.StateName, d.LGAName, d.CityName}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "/")
}

func (d Destination) IsZero() bool {
	return strings.TrimSpace(d.StateCode) == "" && strings.TrimSpace(d.CountryName) == ""
}

// ShippingAddress is the full delivery address attached to a checkout.
type ShippingAddress struct {
	Destination
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Line1    string `json:"line1" validate:"required"`
	Line2    string `json:"line2,omitempty"`
}

// Value serializes the address for a JSONB column.
func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan decodes a JSONB column into the address.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json source %T", value)
	}
}
