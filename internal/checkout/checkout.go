// Package checkout turns the shared cart into an order.
//
// A checkout holds the cart lock while it runs one database transaction:
// snapshot the cart through the transaction, insert the order and its
// lines with the snapshot prices, commit, and only then clear the cart.
// Any failure rolls back the transaction and leaves the cart untouched.
// Nothing is retried.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"MiniShop/internal/apperr"
	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/order"
	"MiniShop/internal/storage"
)

const tracerName = "MiniShop/internal/checkout"

type Receipt struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

type Engine struct {
	DB      *storage.DB
	Cart    *cart.Cart
	Log     *zap.Logger
	Metrics *Metrics

	// Now defaults to time.Now.
	Now    func() time.Time
	Tracer trace.Tracer
}

func (e *Engine) Checkout(ctx context.Context) (Receipt, error) {
	attempt := uuid.NewString()
	start := time.Now()

	ctx, span := e.tracer().Start(ctx, "checkout", trace.WithAttributes(attribute.String("checkout.attempt", attempt)))
	defer span.End()

	receipt, lines, err := e.run(ctx)
	e.Metrics.observe(err, time.Since(start))

	switch {
	case err == nil:
		span.SetAttributes(attribute.Int64("order.id", receipt.OrderID), attribute.Int("order.lines", lines))
		e.log().Info("checkout completed",
			zap.String("attempt", attempt),
			zap.Int64("order_id", receipt.OrderID),
			zap.Int("lines", lines),
			zap.String("total", receipt.Total.StringFixed(2)),
		)
	case errors.Is(err, apperr.ErrEmptyCart):
		span.SetAttributes(attribute.Int("order.lines", 0))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		e.log().Error("checkout rolled back", zap.String("attempt", attempt), zap.Error(err))
	}

	return receipt, err
}

func (e *Engine) run(ctx context.Context) (Receipt, int, error) {
	var (
		receipt Receipt
		lines   int
	)

	err := e.Cart.Exclusive(func(locked *cart.Locked) error {
		tx, err := e.DB.BeginTx(ctx, e.DB.TxOptions())
		if err != nil {
			return apperr.Storage("begin checkout", err)
		}
		defer func() { _ = tx.Rollback() }()

		snap, err := locked.Read(ctx, catalog.NewSQLStore(tx))
		if err != nil {
			return err
		}
		if len(snap.Lines) == 0 {
			return apperr.ErrEmptyCart
		}

		w := order.NewWriter(tx)
		o, err := w.Create(ctx, e.now())
		if err != nil {
			return err
		}
		for _, l := range snap.Lines {
			_, err := w.InsertLine(ctx, o.ID, order.LineInput{
				ProductID: l.ProductID,
				Name:      l.Name,
				Qty:       l.Qty,
				Price:     l.UnitPrice,
			})
			if err != nil {
				return err
			}
		}

		locked.Clear()
		if err := tx.Commit(); err != nil {
			return apperr.Storage("commit checkout", err)
		}

		receipt = Receipt{OrderID: o.ID, Total: snap.Total}
		lines = len(snap.Lines)
		return nil
	})
	if err != nil {
		return Receipt{}, 0, err
	}
	return receipt, lines, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer(tracerName)
}

func (e *Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}
