// Package main is a small program wiring an event.Target into an order flow.
//
//	go run ./example
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shashiranjanraj/eventtarget/pkg/event"
	"github.com/shashiranjanraj/eventtarget/pkg/logger"
	"github.com/shashiranjanraj/eventtarget/pkg/metrics"
)

type Order struct {
	ID    string
	Total float64
}

func main() {
	orders := event.New[Order](event.WithObserver(metrics.NewObserver()))

	audit := event.Func(func(ctx context.Context, o Order) error {
		logger.WithCtx(ctx).Info("audit", "order", o.ID)
		return nil
	})
	receipt := event.AsyncFunc(func(ctx context.Context, o Order) error {
		time.Sleep(100 * time.Millisecond) // pretend to talk to a mail server
		logger.WithCtx(ctx).Info("receipt sent", "order", o.ID)
		return nil
	})
	fraud := event.AsyncFunc(func(ctx context.Context, o Order) error {
		if o.Total > 10_000 {
			return errors.New("flagged for review")
		}
		return nil
	})

	orders.AddListener("order.paid", audit)
	orders.AddListener("order.paid", receipt)
	orders.AddListener("order.paid", fraud)

	ctx := logger.InjectLogger(context.Background(), logger.L.With("source", "example"))

	// Receipt before fraud check, one after the other.
	if err := orders.Fire(ctx, "order.paid", Order{ID: "A-1", Total: 42}); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	// Everything at once; the fraud rejection comes back as the error.
	if err := orders.FireAsync(ctx, "order.paid", Order{ID: "A-2", Total: 20_000}); err != nil {
		fmt.Println("order A-2:", err)
	}

	// Stop auditing.
	orders.RemoveListener("order.paid", audit)
	fmt.Println("listeners left:", orders.Len("order.paid"))
}
