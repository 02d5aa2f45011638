package models

// CartLine is one entry in the customer cart. Lines with the same menu item
// but different special instructions stay separate.
type CartLine struct {
	MenuItemID          int64   `json:"menuItemId"`
	Name                string  `json:"name"`
	Price               float64 `json:"price"`
	ImageURL            string  `json:"imageUrl,omitempty"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

// LineTotal is the line's contribution to the cart total.
func (l CartLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}
