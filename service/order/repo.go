package order

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rafata1/retail-order-core/dbtx"
	"github.com/rafata1/retail-order-core/model"
)

type IRepo interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order model.Order) (int64, error)
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (model.Order, error)
	ListOrders(ctx context.Context, offset, limit int) ([]model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id int64, statusID int64) error
	UpdateOrderTotal(ctx context.Context, id int64, total decimal.Decimal) error
	DeleteOrderItems(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, id int64) error
	GetStatus(ctx context.Context, statusID int64) (model.OrderStatus, error)
	CreateOutbox(ctx context.Context, outbox model.Outbox) error
	GetPendingOutbox(ctx context.Context, limit int) ([]model.Outbox, error)
	MarkDoneOutboxes(ctx context.Context, ids []int64) error
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

var createOrderQuery = "INSERT INTO orders (user_id, status_id, total_amount) VALUES (:user_id, :status_id, :total_amount)"

func (r repo) CreateOrder(ctx context.Context, order model.Order) (int64, error) {
	res, err := sqlx.NamedExecContext(ctx, dbtx.Ext(ctx, r.db), createOrderQuery, order)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

var createOrderItemsQuery = "INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) " +
	"VALUES (:order_id, :product_id, :quantity, :price_at_purchase)"

func (r repo) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, dbtx.Ext(ctx, r.db), createOrderItemsQuery, items)
	return err
}

var getOrderQuery = "SELECT * FROM orders WHERE id = ?"

func (r repo) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	var res model.Order
	err := sqlx.GetContext(ctx, dbtx.Ext(ctx, r.db), &res, getOrderQuery, id)
	return res, err
}

var getOrderForUpdateQuery = "SELECT * FROM orders WHERE id = ? FOR UPDATE"

func (r repo) GetOrderForUpdate(ctx context.Context, id int64) (model.Order, error) {
	var res model.Order
	err := sqlx.GetContext(ctx, dbtx.Ext(ctx, r.db), &res, getOrderForUpdateQuery, id)
	return res, err
}

var listOrdersQuery = "SELECT * FROM orders ORDER BY id LIMIT ? OFFSET ?"

func (r repo) ListOrders(ctx context.Context, offset, limit int) ([]model.Order, error) {
	var res []model.Order
	err := sqlx.SelectContext(ctx, dbtx.Ext(ctx, r.db), &res, listOrdersQuery, limit, offset)
	return res, err
}

var listOrdersByUserQuery = "SELECT * FROM orders WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?"

func (r repo) ListOrdersByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Order, error) {
	var res []model.Order
	err := sqlx.SelectContext(ctx, dbtx.Ext(ctx, r.db), &res, listOrdersByUserQuery, userID, limit, offset)
	return res, err
}

var listOrderItemsQuery = "SELECT * FROM order_items WHERE order_id = ? ORDER BY product_id"

func (r repo) ListOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var res []model.OrderItem
	err := sqlx.SelectContext(ctx, dbtx.Ext(ctx, r.db), &res, listOrderItemsQuery, orderID)
	return res, err
}

var listOrderItemsByOrdersQuery = "SELECT * FROM order_items WHERE order_id IN (?) ORDER BY order_id, product_id"

func (r repo) ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]model.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(listOrderItemsByOrdersQuery, orderIDs)
	if err != nil {
		return nil, err
	}

	var res []model.OrderItem
	err = sqlx.SelectContext(ctx, dbtx.Ext(ctx, r.db), &res, query, args...)
	return res, err
}

var updateOrderStatusQuery = "UPDATE orders SET status_id = ? WHERE id = ?"

func (r repo) UpdateOrderStatus(ctx context.Context, id int64, statusID int64) error {
	_, err := dbtx.Ext(ctx, r.db).ExecContext(ctx, updateOrderStatusQuery, statusID, id)
	return err
}

var updateOrderTotalQuery = "UPDATE orders SET total_amount = ? WHERE id = ?"

func (r repo) UpdateOrderTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	_, err := dbtx.Ext(ctx, r.db).ExecContext(ctx, updateOrderTotalQuery, total, id)
	return err
}

var deleteOrderItemsQuery = "DELETE FROM order_items WHERE order_id = ?"

func (r repo) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := dbtx.Ext(ctx, r.db).ExecContext(ctx, deleteOrderItemsQuery, orderID)
	return err
}

var deleteOrderQuery = "DELETE FROM orders WHERE id = ?"

func (r repo) DeleteOrder(ctx context.Context, id int64) error {
	_, err := dbtx.Ext(ctx, r.db).ExecContext(ctx, deleteOrderQuery, id)
	return err
}

var getStatusQuery = "SELECT * FROM order_statuses WHERE id = ?"

func (r repo) GetStatus(ctx context.Context, statusID int64) (model.OrderStatus, error) {
	var res model.OrderStatus
	err := sqlx.GetContext(ctx, dbtx.Ext(ctx, r.db), &res, getStatusQuery, statusID)
	return res, err
}

var createOutboxQuery = "INSERT INTO order_outboxes(content) VALUES (:content)"

func (r repo) CreateOutbox(ctx context.Context, outbox model.Outbox) error {
	_, err := sqlx.NamedExecContext(ctx, dbtx.Ext(ctx, r.db), createOutboxQuery, outbox)
	return err
}

var getPendingOutboxQuery = "SELECT * FROM order_outboxes WHERE status = ? LIMIT ?"

func (r repo) GetPendingOutbox(ctx context.Context, limit int) ([]model.Outbox, error) {
	var res []model.Outbox
	err := sqlx.SelectContext(ctx, dbtx.Ext(ctx, r.db), &res, getPendingOutboxQuery, model.OutboxPending, limit)
	return res, err
}

var markDoneOutboxesQuery = "UPDATE order_outboxes SET status = ? WHERE id IN (?)"

func (r repo) MarkDoneOutboxes(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(markDoneOutboxesQuery, model.OutboxCompleted, ids)
	if err != nil {
		return err
	}

	_, err = dbtx.Ext(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}
