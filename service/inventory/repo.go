package inventory

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rafata1/retail-order-core/dbtx"
	"github.com/rafata1/retail-order-core/model"
)

type IRepo interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
	GetProduct(ctx context.Context, productID int64) (model.Product, error)
	LockProductForUpdate(ctx context.Context, productID int64) (model.Product, error)
	UpdateStock(ctx context.Context, productID int64, remaining int64) error
}

func NewRepo(db *sqlx.DB) IRepo {
	return &repo{
		db: db,
	}
}

type repo struct {
	db *sqlx.DB
}

func (r repo) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbtx.Transact(ctx, r.db, fn)
}

var getProductQuery = "SELECT * FROM products WHERE id = ?"

func (r repo) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	var res model.Product
	err := sqlx.GetContext(ctx, dbtx.Ext(ctx, r.db), &res, getProductQuery, productID)
	return res, err
}

var lockProductForUpdateQuery = "SELECT * FROM products WHERE id = ? FOR UPDATE"

func (r repo) LockProductForUpdate(ctx context.Context, productID int64) (model.Product, error) {
	var res model.Product
	err := sqlx.GetContext(ctx, dbtx.Ext(ctx, r.db), &res, lockProductForUpdateQuery, productID)
	return res, err
}

var updateStockQuery = "UPDATE products SET remaining_stock = ? WHERE id = ?"

func (r repo) UpdateStock(ctx context.Context, productID int64, remaining int64) error {
	_, err := dbtx.Ext(ctx, r.db).ExecContext(ctx, updateStockQuery, remaining, productID)
	return err
}
