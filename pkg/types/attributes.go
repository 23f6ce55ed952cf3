package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

// SelectedAttributes stores an ordered attribute selection as JSONB.
type SelectedAttributes []pricing.Attribute

// Value serializes the selection to JSON.
func (s SelectedAttributes) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan decodes JSONB into the selection.
func (s *SelectedAttributes) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded SelectedAttributes
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}
