package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rafata1/retail-order-core/kafka"
	"github.com/rafata1/retail-order-core/service/inventory"
	"github.com/rafata1/retail-order-core/service/order"
)

// relayCommand runs the outbox relay: every tick it pushes pending order
// events to Kafka and marks them done, until interrupted.
func relayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "publish pending outbox events to kafka",
		Run: func(cmd *cobra.Command, args []string) {
			conf := mustLoadConfig()
			db := mustConnect(conf)
			producer := kafka.NewProducer(conf.KafkaHost, conf.OrderEventsTopic)
			defer producer.Close()

			svc := order.NewService(
				order.NewRepo(db),
				inventory.NewLedger(inventory.NewRepo(db)),
				producer,
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			zlog.Info().Str("topic", conf.OrderEventsTopic).Msg("relay started")
			for {
				select {
				case <-ctx.Done():
					zlog.Info().Msg("relay stopped")
					return
				case <-ticker.C:
					err := svc.RelayMessage(ctx, conf.RelayBatchSize)
					if err != nil {
						zlog.Error().Err(err).Msg("relay outbox batch")
					}
				}
			}
		},
	}
}

// watchEventsCommand tails the order events topic, for checking what
// downstream consumers will see.
func watchEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-events",
		Short: "tail the order events topic",
		Run: func(cmd *cobra.Command, args []string) {
			conf := mustLoadConfig()
			consumer := kafka.NewConsumer(conf.KafkaHost, conf.OrderEventsTopic)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-consumer.Messages():
					zlog.Info().
						Int64("offset", msg.Offset).
						RawJSON("event", msg.Value).
						Msg("order event")
				case err := <-consumer.Errors():
					zlog.Error().Err(err).Msg("consume order event")
				}
			}
		},
	}
}
