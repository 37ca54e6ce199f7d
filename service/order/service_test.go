package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rafata1/retail-order-core/auth"
	"github.com/rafata1/retail-order-core/config"
	"github.com/rafata1/retail-order-core/event"
	"github.com/rafata1/retail-order-core/model"
	"github.com/rafata1/retail-order-core/service/inventory"
)

var (
	customer = auth.Caller{UserID: 1, Role: auth.RoleRegular}
	manager  = auth.Caller{UserID: 2, Role: auth.RoleStaff}
	admin    = auth.Caller{UserID: 3, Role: auth.RoleAdmin}
)

// getTestingDB connects to the database from config (ORDER_DB_DSN overrides)
// and resets every table, then installs the reference rows and a two-product
// catalog. Tests are skipped when no database is reachable; the schema must
// already be migrated.
func getTestingDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf, err := config.Load("")
	require.NoError(t, err)

	db, err := sqlx.Connect("mysql", conf.DatabaseDSN)
	if err != nil {
		t.Skipf("mysql is not reachable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	db.MustExec("SET FOREIGN_KEY_CHECKS = 0")
	for _, table := range []string{
		"order_outboxes", "order_items", "orders", "order_statuses",
		"products", "categories", "users", "roles",
	} {
		db.MustExec("TRUNCATE " + table)
	}
	db.MustExec("SET FOREIGN_KEY_CHECKS = 1")

	db.MustExec("INSERT INTO roles (id, name) VALUES (1, 'customer'), (2, 'manager'), (3, 'admin')")
	db.MustExec("INSERT INTO users (id, username, email, role_id) VALUES " +
		"(1, 'customer', 'user@example.com', 1), " +
		"(2, 'manager', 'manager@example.com', 2), " +
		"(3, 'admin', 'admin@example.com', 3)")
	db.MustExec("INSERT INTO order_statuses (id, name) VALUES " +
		"(1, 'new'), (2, 'processing'), (3, 'shipped'), (4, 'delivered'), (5, 'cancelled')")
	db.MustExec("INSERT INTO categories (id, name) VALUES (1, 'Phones'), (2, 'TVs')")
	db.MustExec("INSERT INTO products (id, name, price, remaining_stock, category_id) VALUES " +
		"(1, 'Galaxy Smartphone', 30000.00, 10, 1), " +
		"(2, 'Toshiba 5000', 25000.00, 50, 2)")
	return db
}

func newTestService(db *sqlx.DB) (IService, *stubProducer) {
	producer := &stubProducer{}
	svc := NewService(NewRepo(db), inventory.NewLedger(inventory.NewRepo(db)), producer)
	return svc, producer
}

type stubProducer struct {
	pushed [][]byte
}

func (p *stubProducer) Push(messages [][]byte) error {
	p.pushed = append(p.pushed, messages...)
	return nil
}

func (p *stubProducer) Close() error { return nil }

func getStock(t *testing.T, db *sqlx.DB, productID int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, db.Get(&stock, "SELECT remaining_stock FROM products WHERE id = ?", productID))
	return stock
}

func TestCreateOrder(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	res, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, customer.UserID, res.UserID)
	assert.Equal(t, model.StatusNew, res.StatusID)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(85000)))
	assert.True(t, res.CreatedAt.Valid)

	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(1), res.Items[0].ProductID)
	assert.Equal(t, int64(2), res.Items[0].Quantity)
	assert.True(t, res.Items[0].PriceAtPurchase.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, int64(2), res.Items[1].ProductID)
	assert.True(t, res.Items[1].PriceAtPurchase.Equal(decimal.NewFromInt(25000)))

	assert.Equal(t, int64(8), getStock(t, db, 1))
	assert.Equal(t, int64(49), getStock(t, db, 2))
}

func TestCreateOrderEmpty(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	_, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Equal(t, int64(10), getStock(t, db, 1))
}

func TestCreateOrderUnknownStatus(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	_, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{
		Items:    []ItemInput{{ProductID: 1, Quantity: 1}},
		StatusID: 42,
	})
	assert.ErrorIs(t, err, ErrStatusNotFound)
	assert.Equal(t, int64(10), getStock(t, db, 1))
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	_, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: 1, Quantity: 1},
			{ProductID: 999, Quantity: 1},
		},
	})

	var notFound *inventory.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(999), notFound.ProductID)
	// The reservation of product 1 rolled back with the transaction.
	assert.Equal(t, int64(10), getStock(t, db, 1))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	_, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1000},
		},
	})

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, int64(50), stockErr.Available)
	assert.Equal(t, int64(10), getStock(t, db, 1))
	assert.Equal(t, int64(50), getStock(t, db, 2))
}

func TestCreateOrderMergesDuplicateLines(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	res, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(3), res.Items[0].Quantity)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, int64(7), getStock(t, db, 1))
}

func TestReplaceItems(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), getStock(t, db, 1))

	res, err := svc.ReplaceItems(ctx, manager, created.ID, []ItemInput{{ProductID: 2, Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(2), res.Items[0].ProductID)
	assert.Equal(t, int64(3), res.Items[0].Quantity)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, created.StatusID, res.StatusID)

	assert.Equal(t, int64(10), getStock(t, db, 1))
	assert.Equal(t, int64(47), getStock(t, db, 2))
}

func TestReplaceItemsInsufficientStock(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.ReplaceItems(ctx, manager, created.ID, []ItemInput{{ProductID: 2, Quantity: 1000}})
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// The release of product 1 rolled back with the failed replace: prior
	// reservation state is unchanged.
	assert.Equal(t, int64(8), getStock(t, db, 1))
	assert.Equal(t, int64(50), getStock(t, db, 2))

	res, err := svc.GetOrder(ctx, customer, created.ID)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(1), res.Items[0].ProductID)
	assert.Equal(t, int64(2), res.Items[0].Quantity)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(60000)))
}

func TestReplaceItemsForbidden(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.ReplaceItems(ctx, customer, created.ID, []ItemInput{{ProductID: 2, Quantity: 1}})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(9), getStock(t, db, 1))
	assert.Equal(t, int64(50), getStock(t, db, 2))
}

func TestReplaceItemsOrderNotFound(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	_, err := svc.ReplaceItems(context.Background(), manager, 9999, []ItemInput{{ProductID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	res, err := svc.UpdateStatus(ctx, manager, created.ID, model.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, res.StatusID)
	// Status changes never touch stock.
	assert.Equal(t, int64(9), getStock(t, db, 1))

	_, err = svc.UpdateStatus(ctx, customer, created.ID, model.StatusShipped)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateStatus(ctx, manager, created.ID, 42)
	assert.ErrorIs(t, err, ErrStatusNotFound)

	_, err = svc.UpdateStatus(ctx, manager, 9999, model.StatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrderRestocks(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	err = svc.DeleteOrder(ctx, customer, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), getStock(t, db, 1))
	assert.Equal(t, int64(50), getStock(t, db, 2))

	// A second delete finds nothing; the restock happened exactly once.
	err = svc.DeleteOrder(ctx, customer, created.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, int64(10), getStock(t, db, 1))
}

func TestDeleteOrderForbidden(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, manager, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.DeleteOrder(ctx, customer, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(9), getStock(t, db, 1))
}

func TestDeleteOrderInvalidState(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, created.ID, model.StatusProcessing)
	require.NoError(t, err)

	err = svc.DeleteOrder(ctx, customer, created.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(9), getStock(t, db, 1))

	// Elevated roles delete regardless of status.
	err = svc.DeleteOrder(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), getStock(t, db, 1))
}

func TestGetOrder(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, manager, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	res, err := svc.GetOrder(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, res.ID)
	require.Len(t, res.Items, 1)

	_, err = svc.GetOrder(ctx, customer, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrder(ctx, admin, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
			Items: []ItemInput{{ProductID: 1, Quantity: 1}},
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateOrder(ctx, manager, CreateOrderInput{
		Items: []ItemInput{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	mine, err := svc.ListOrders(ctx, customer, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, customer.UserID, o.UserID)
		assert.Len(t, o.Items, 1)
	}

	all, err := svc.ListOrders(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	paged, err := svc.ListOrders(ctx, admin, 2, 2)
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	// Out-of-range parameters fall back to sane defaults.
	defaulted, err := svc.ListOrders(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 3)
}

func TestConcurrentCreateSingleUnit(t *testing.T) {
	db := getTestingDB(t)
	svc, _ := newTestService(db)

	db.MustExec("INSERT INTO products (id, name, price, remaining_stock, category_id) VALUES " +
		"(3, 'Last One', 1000.00, 1, 1)")

	errs := make(chan error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := svc.CreateOrder(context.Background(), customer, CreateOrderInput{
				Items: []ItemInput{{ProductID: 3, Quantity: 1}},
			})
			errs <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(errs)

	var succeeded, outOfStock int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		outOfStock++
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, int64(0), getStock(t, db, 3))
}

func TestRelayMessage(t *testing.T) {
	db := getTestingDB(t)
	svc, producer := newTestService(db)

	ctx := context.Background()
	created, err := svc.CreateOrder(ctx, customer, CreateOrderInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RelayMessage(ctx, 10))
	require.Len(t, producer.pushed, 1)

	var published event.OrderEvent
	require.NoError(t, json.Unmarshal(producer.pushed[0], &published))
	assert.Equal(t, event.TypeOrderCreated, published.Type)
	assert.Equal(t, created.ID, published.OrderID)
	assert.NotEmpty(t, published.EventID)
	require.Len(t, published.Items, 1)
	assert.Equal(t, int64(2), published.Items[0].Quantity)

	// Nothing pending afterwards: relaying again pushes nothing.
	require.NoError(t, svc.RelayMessage(ctx, 10))
	assert.Len(t, producer.pushed, 1)
}
