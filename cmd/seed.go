package main

import (
	"context"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rafata1/retail-order-core/auth"
	"github.com/rafata1/retail-order-core/model"
	"github.com/rafata1/retail-order-core/service/inventory"
	"github.com/rafata1/retail-order-core/service/order"
)

// seedCommand installs the reference rows (roles, statuses) and a demo
// catalog with a couple of orders, so a freshly migrated database is usable
// right away.
func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "seed reference data and a demo catalog",
		Run: func(cmd *cobra.Command, args []string) {
			conf := mustLoadConfig()
			db := mustConnect(conf)

			db.MustExec("INSERT INTO roles (id, name) VALUES (1, 'customer'), (2, 'manager'), (3, 'admin')")
			db.MustExec("INSERT INTO order_statuses (id, name) VALUES " +
				"(1, 'new'), (2, 'processing'), (3, 'shipped'), (4, 'delivered'), (5, 'cancelled')")
			db.MustExec("INSERT INTO categories (id, name) VALUES (1, 'Phones'), (2, 'TVs')")
			db.MustExec("INSERT INTO products (id, name, price, description, remaining_stock, category_id) VALUES " +
				"(1, 'Galaxy Smartphone', 30000.00, 'Flagship phone', 10, 1), " +
				"(2, 'Toshiba 5000', 25000.00, 'Large panel TV', 50, 2)")
			db.MustExec("INSERT INTO users (id, username, email, role_id) VALUES " +
				"(1, 'customer', 'user@example.com', 1), " +
				"(2, 'manager', 'manager@example.com', 2), " +
				"(3, 'admin', 'admin@example.com', 3)")

			svc := order.NewService(
				order.NewRepo(db),
				inventory.NewLedger(inventory.NewRepo(db)),
				nil, // the seed never relays events
			)

			ctx := context.Background()
			customer := auth.Caller{UserID: 1, Role: auth.RoleRegular}
			_, err := svc.CreateOrder(ctx, customer, order.CreateOrderInput{
				Items: []order.ItemInput{
					{ProductID: 1, Quantity: 2},
					{ProductID: 2, Quantity: 1},
				},
			})
			if err != nil {
				zlog.Fatal().Err(err).Msg("seed customer order")
			}

			manager := auth.Caller{UserID: 2, Role: auth.RoleStaff}
			_, err = svc.CreateOrder(ctx, manager, order.CreateOrderInput{
				Items:    []order.ItemInput{{ProductID: 2, Quantity: 3}},
				StatusID: model.StatusProcessing,
			})
			if err != nil {
				zlog.Fatal().Err(err).Msg("seed manager order")
			}

			zlog.Info().Msg("seeded reference data and demo orders")
		},
	}
}
