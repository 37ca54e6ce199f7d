package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	Price          decimal.Decimal `db:"price"`
	Description    sql.NullString  `db:"description"`
	RemainingStock int64           `db:"remaining_stock"`
	CategoryID     int64           `db:"category_id"`
	CreatedAt      sql.NullTime    `db:"created_at"`
}

type Category struct {
	ID        int64        `db:"id"`
	Name      string       `db:"name"`
	CreatedAt sql.NullTime `db:"created_at"`
}
