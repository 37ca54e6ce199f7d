package order

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rafata1/retail-order-core/auth"
	"github.com/rafata1/retail-order-core/event"
	"github.com/rafata1/retail-order-core/kafka"
	"github.com/rafata1/retail-order-core/model"
	"github.com/rafata1/retail-order-core/service/inventory"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type CreateOrderInput struct {
	Items []ItemInput
	// StatusID defaults to the "new" status when zero.
	StatusID int64
}

type IService interface {
	CreateOrder(ctx context.Context, caller auth.Caller, input CreateOrderInput) (model.Order, error)
	ReplaceItems(ctx context.Context, caller auth.Caller, orderID int64, items []ItemInput) (model.Order, error)
	UpdateStatus(ctx context.Context, caller auth.Caller, orderID int64, statusID int64) (model.Order, error)
	DeleteOrder(ctx context.Context, caller auth.Caller, orderID int64) error
	GetOrder(ctx context.Context, caller auth.Caller, orderID int64) (model.Order, error)
	ListOrders(ctx context.Context, caller auth.Caller, page, limit int) ([]model.Order, error)
	RelayMessage(ctx context.Context, limit int) error
}

func NewService(repo IRepo, ledger inventory.ILedger, producer kafka.IProducer) IService {
	return &service{
		repo:     repo,
		ledger:   ledger,
		producer: producer,
	}
}

type service struct {
	repo     IRepo
	ledger   inventory.ILedger
	producer kafka.IProducer
}

func (s service) CreateOrder(ctx context.Context, caller auth.Caller, input CreateOrderInput) (model.Order, error) {
	lines, err := normalizeItems(input.Items)
	if err != nil {
		return model.Order{}, err
	}

	statusID := input.StatusID
	if statusID == 0 {
		statusID = model.StatusNew
	}

	var out model.Order
	err = s.repo.Transact(ctx, func(ctx context.Context) error {
		_, err := s.repo.GetStatus(ctx, statusID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStatusNotFound
			}
			return err
		}

		items, total, err := s.reserveLines(ctx, lines)
		if err != nil {
			return err
		}

		id, err := s.repo.CreateOrder(ctx, model.Order{
			UserID:      caller.UserID,
			StatusID:    statusID,
			TotalAmount: total,
		})
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		for i := range items {
			items[i].OrderID = id
		}
		err = s.repo.CreateOrderItems(ctx, items)
		if err != nil {
			return errors.Wrap(err, "insert order items")
		}

		out, err = s.loadOrder(ctx, id)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, event.TypeOrderCreated, out)
	})
	if err != nil {
		return model.Order{}, err
	}

	zlog.Info().
		Int64("order_id", out.ID).
		Int64("user_id", out.UserID).
		Str("total", out.TotalAmount.String()).
		Msg("order created")
	return out, nil
}

// ReplaceItems swaps an order's whole item set: every existing line is
// released back to stock, then every requested line is reserved fresh with a
// new price snapshot, all in one transaction. A failed reservation rolls the
// releases back too, so the order is always observed with either the old item
// set or the new one.
func (s service) ReplaceItems(ctx context.Context, caller auth.Caller, orderID int64, items []ItemInput) (model.Order, error) {
	if !auth.Can(caller.Role, auth.ActionReplaceOrderItems, false) {
		return model.Order{}, ErrForbidden
	}

	lines, err := normalizeItems(items)
	if err != nil {
		return model.Order{}, err
	}

	var out model.Order
	err = s.repo.Transact(ctx, func(ctx context.Context) error {
		existing, err := s.getOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		current, err := s.repo.ListOrderItems(ctx, existing.ID)
		if err != nil {
			return errors.Wrap(err, "load order items")
		}
		for _, item := range current {
			err = s.ledger.Release(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
		}
		err = s.repo.DeleteOrderItems(ctx, existing.ID)
		if err != nil {
			return errors.Wrap(err, "discard order items")
		}

		replaced, total, err := s.reserveLines(ctx, lines)
		if err != nil {
			return err
		}
		for i := range replaced {
			replaced[i].OrderID = existing.ID
		}
		err = s.repo.CreateOrderItems(ctx, replaced)
		if err != nil {
			return errors.Wrap(err, "insert order items")
		}
		err = s.repo.UpdateOrderTotal(ctx, existing.ID, total)
		if err != nil {
			return errors.Wrap(err, "update order total")
		}

		out, err = s.loadOrder(ctx, existing.ID)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, event.TypeOrderItemsReplaced, out)
	})
	if err != nil {
		return model.Order{}, err
	}

	zlog.Info().
		Int64("order_id", out.ID).
		Str("total", out.TotalAmount.String()).
		Msg("order items replaced")
	return out, nil
}

func (s service) UpdateStatus(ctx context.Context, caller auth.Caller, orderID int64, statusID int64) (model.Order, error) {
	if !auth.Can(caller.Role, auth.ActionUpdateOrderStatus, false) {
		return model.Order{}, ErrForbidden
	}

	var out model.Order
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		existing, err := s.getOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		_, err = s.repo.GetStatus(ctx, statusID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStatusNotFound
			}
			return err
		}

		err = s.repo.UpdateOrderStatus(ctx, existing.ID, statusID)
		if err != nil {
			return errors.Wrap(err, "update order status")
		}

		out, err = s.loadOrder(ctx, existing.ID)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, event.TypeOrderStatusUpdated, out)
	})
	if err != nil {
		return model.Order{}, err
	}

	zlog.Info().
		Int64("order_id", out.ID).
		Int64("status_id", out.StatusID).
		Msg("order status updated")
	return out, nil
}

// DeleteOrder restocks every line, then removes the order and its items. A
// regular caller may only delete their own orders and only while the order is
// still in the "new" status; elevated roles delete regardless of status.
func (s service) DeleteOrder(ctx context.Context, caller auth.Caller, orderID int64) error {
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		existing, err := s.getOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !auth.Can(caller.Role, auth.ActionDeleteOrder, existing.UserID == caller.UserID) {
			return ErrForbidden
		}
		if !caller.Role.Elevated() && existing.StatusID != model.StatusNew {
			return ErrInvalidState
		}

		items, err := s.repo.ListOrderItems(ctx, existing.ID)
		if err != nil {
			return errors.Wrap(err, "load order items")
		}
		for _, item := range items {
			err = s.ledger.Release(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
		}

		err = s.repo.DeleteOrderItems(ctx, existing.ID)
		if err != nil {
			return errors.Wrap(err, "delete order items")
		}
		err = s.repo.DeleteOrder(ctx, existing.ID)
		if err != nil {
			return errors.Wrap(err, "delete order")
		}

		return s.appendEvent(ctx, event.TypeOrderDeleted, model.Order{
			ID:          existing.ID,
			UserID:      existing.UserID,
			StatusID:    existing.StatusID,
			TotalAmount: existing.TotalAmount,
		})
	})
	if err != nil {
		return err
	}

	zlog.Info().Int64("order_id", orderID).Msg("order deleted")
	return nil
}

func (s service) GetOrder(ctx context.Context, caller auth.Caller, orderID int64) (model.Order, error) {
	res, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, errors.Wrapf(err, "load order %d", orderID)
	}
	if !auth.Can(caller.Role, auth.ActionReadOrder, res.UserID == caller.UserID) {
		return model.Order{}, ErrForbidden
	}

	res.Items, err = s.repo.ListOrderItems(ctx, res.ID)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "load order items")
	}
	return res, nil
}

// ListOrders returns one page of orders. Elevated callers see every order,
// regular callers only their own.
func (s service) ListOrders(ctx context.Context, caller auth.Caller, page, limit int) ([]model.Order, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := (page - 1) * limit

	var (
		res []model.Order
		err error
	)
	if auth.Can(caller.Role, auth.ActionListAllOrders, false) {
		res, err = s.repo.ListOrders(ctx, offset, limit)
	} else {
		res, err = s.repo.ListOrdersByUser(ctx, caller.UserID, offset, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if len(res) == 0 {
		return res, nil
	}

	ids := make([]int64, 0, len(res))
	for _, o := range res {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}

	byOrder := make(map[int64][]model.OrderItem, len(res))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range res {
		res[i].Items = byOrder[res[i].ID]
	}
	return res, nil
}

// RelayMessage pushes pending outbox rows to the order events topic and marks
// them completed.
func (s service) RelayMessage(ctx context.Context, limit int) error {
	outboxes, err := s.repo.GetPendingOutbox(ctx, limit)
	if err != nil {
		return err
	}
	err = s.producer.Push(extractContents(outboxes))
	if err != nil {
		return err
	}

	return s.repo.MarkDoneOutboxes(ctx, extractIDs(outboxes))
}

// reserveLines reserves stock for every requested line, in the ascending
// product order normalizeItems established, and builds the price-snapshotted
// items plus their total.
func (s service) reserveLines(ctx context.Context, lines []ItemInput) ([]model.OrderItem, decimal.Decimal, error) {
	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		price, err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}
		items = append(items, model.OrderItem{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(line.Quantity)))
	}
	return items, total, nil
}

func (s service) getOrderForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	res, err := s.repo.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, errors.Wrapf(err, "lock order %d", orderID)
	}
	return res, nil
}

func (s service) loadOrder(ctx context.Context, orderID int64) (model.Order, error) {
	res, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, errors.Wrapf(err, "load order %d", orderID)
	}
	res.Items, err = s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "load order items")
	}
	return res, nil
}

func (s service) appendEvent(ctx context.Context, eventType string, order model.Order) error {
	lines := make([]event.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, event.Line{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	content, err := json.Marshal(event.OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		StatusID:    order.StatusID,
		TotalAmount: order.TotalAmount,
		Items:       lines,
	})
	if err != nil {
		return err
	}
	return s.repo.CreateOutbox(ctx, model.Outbox{Content: content})
}

func extractIDs(outboxes []model.Outbox) []int64 {
	var res []int64
	for _, outbox := range outboxes {
		res = append(res, outbox.ID)
	}
	return res
}

func extractContents(outboxes []model.Outbox) [][]byte {
	var res [][]byte
	for _, outbox := range outboxes {
		res = append(res, outbox.Content)
	}
	return res
}
