package domain

import "time"

// CartItem associates a quantity of a product with a user. Stored
// quantities are always at least 1.
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotal is the item's price times quantity, or 0 without a loaded product.
func (i *CartItem) LineTotal() int64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.Price * int64(i.Quantity)
}

// Cart is a user's set of cart items.
type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// TotalQuantity is the badge count: the sum of item quantities.
func (c *Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the sum of line totals in minor units.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].LineTotal()
	}
	return total
}

// Find returns the index of the item with id, or -1.
func (c *Cart) Find(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Remove drops the item with id and reports whether it was present.
func (c *Cart) Remove(id string) bool {
	i := c.Find(id)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// QuantityChange is the outcome of applying a delta to a cart item.
type QuantityChange struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Removed  bool   `json:"removed"`
}

// ApplyDelta adds delta to the item's quantity. A result of zero or less
// removes the item. ok is false when the item is not in the cart.
func (c *Cart) ApplyDelta(id string, delta int) (change QuantityChange, ok bool) {
	i := c.Find(id)
	if i < 0 {
		return QuantityChange{}, false
	}
	next := c.Items[i].Quantity + delta
	if next <= 0 {
		c.Remove(id)
		return QuantityChange{ItemID: id, Removed: true}, true
	}
	c.Items[i].Quantity = next
	return QuantityChange{ItemID: id, Quantity: next}, true
}
