package event

import "github.com/shopspring/decimal"

const (
	TypeOrderCreated       = "ORDER_CREATED"
	TypeOrderItemsReplaced = "ORDER_ITEMS_REPLACED"
	TypeOrderStatusUpdated = "ORDER_STATUS_UPDATED"
	TypeOrderDeleted       = "ORDER_DELETED"
)

type Line struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderEvent is the payload pushed to the order events topic for every
// committed order mutation. Items carries the item set after the mutation and
// is empty for deletions.
type OrderEvent struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	StatusID    int64           `json:"status_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []Line          `json:"items,omitempty"`
}
