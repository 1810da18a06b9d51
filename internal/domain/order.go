package domain

import "time"

const (
	OrderStatusPlaced    = "placed"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// DeliveryDays is the delivery estimate shown on every order.
const DeliveryDays = 3

// Order is a placed purchase. TotalPrice is in minor units.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     string      `json:"status"`
	TotalPrice int64       `json:"total_price"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderItem snapshots the unit price a product was bought at.
type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	Product   *Product `json:"product,omitempty"`
	Price     int64    `json:"price"`
	Quantity  int      `json:"quantity"`
}

func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// TotalQuantity sums item quantities.
func (o *Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// ComputeTotal sums line totals.
func (o *Order) ComputeTotal() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].LineTotal()
	}
	return total
}

// DisplayTotal is the total in major units.
func (o *Order) DisplayTotal() float64 {
	return ToMajorUnits(o.TotalPrice)
}
