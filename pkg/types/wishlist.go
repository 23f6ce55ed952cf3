package types

// WishlistEntry reports a product's membership after an add or remove.
type WishlistEntry struct {
	ProductID string `json:"productId"`
	Saved     bool   `json:"saved"`
}

// WishlistPage lists saved product ids newest first.
type WishlistPage struct {
	ProductIDs []string `json:"productIds"`
	NextCursor string   `json:"nextCursor,omitempty"`
}
