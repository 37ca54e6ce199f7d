package inventory

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/rafata1/retail-order-core/dbtx"
)

// ILedger owns atomic stock movements. Reserve and Release read-then-write a
// product row under an exclusive row lock, so they must run inside the
// caller's transaction: the lock is what serializes concurrent orders on the
// same product, and the transaction is what rolls every movement back when a
// later step of the surrounding order operation fails.
type ILedger interface {
	// Reserve decrements available stock by quantity and returns the unit
	// price read under the lock, for the price-at-purchase snapshot.
	Reserve(ctx context.Context, productID int64, quantity int64) (decimal.Decimal, error)
	// Release returns quantity to the product's available stock. There is no
	// upper bound check.
	Release(ctx context.Context, productID int64, quantity int64) error
}

func NewLedger(repo IRepo) ILedger {
	return &ledger{
		repo: repo,
	}
}

type ledger struct {
	repo IRepo
}

func (l ledger) Reserve(ctx context.Context, productID int64, quantity int64) (decimal.Decimal, error) {
	if !dbtx.InTx(ctx) {
		return decimal.Decimal{}, errors.New("inventory: Reserve called outside a transaction")
	}

	product, err := l.repo.LockProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Decimal{}, &ProductNotFoundError{ProductID: productID}
		}
		return decimal.Decimal{}, errors.Wrapf(err, "lock product %d", productID)
	}

	if quantity > product.RemainingStock {
		return decimal.Decimal{}, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.RemainingStock,
		}
	}

	err = l.repo.UpdateStock(ctx, productID, product.RemainingStock-quantity)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "decrement stock of product %d", productID)
	}
	return product.Price, nil
}

func (l ledger) Release(ctx context.Context, productID int64, quantity int64) error {
	if !dbtx.InTx(ctx) {
		return errors.New("inventory: Release called outside a transaction")
	}

	product, err := l.repo.LockProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ProductNotFoundError{ProductID: productID}
		}
		return errors.Wrapf(err, "lock product %d", productID)
	}

	err = l.repo.UpdateStock(ctx, productID, product.RemainingStock+quantity)
	if err != nil {
		return errors.Wrapf(err, "increment stock of product %d", productID)
	}
	return nil
}
