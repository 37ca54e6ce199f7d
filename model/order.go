package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	StatusID    int64           `db:"status_id"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	CreatedAt   sql.NullTime    `db:"created_at"`
	UpdatedAt   sql.NullTime    `db:"updated_at"`

	// Items is loaded separately, in ascending product order.
	Items []OrderItem `db:"-"`
}

// OrderItem is a priced line of an order. PriceAtPurchase is the unit price
// captured when the stock was reserved and never changes afterwards, no matter
// what happens to the product's catalog price later.
type OrderItem struct {
	OrderID         int64           `db:"order_id"`
	ProductID       int64           `db:"product_id"`
	Quantity        int64           `db:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase"`
}
