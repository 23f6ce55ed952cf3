package pricing

import "strings"

// Attribute is one selected option on a cart line, e.g. {Size, XL}.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttributePrice overrides the product base price when its option is selected.
type AttributePrice struct {
	Name  string  `json:"name"`
	Value string  `json:"value"`
	Price float64 `json:"price"`
}

func (a Attribute) matches(name, value string) bool {
	return a.Name == name && a.Value == value
}

// AttributesKey builds a stable key for an ordered attribute selection.
func AttributesKey(attrs []Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		parts = append(parts, attr.Name+"="+attr.Value)
	}
	return strings.Join(parts, "|")
}
