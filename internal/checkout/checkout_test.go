package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"MiniShop/internal/apperr"
	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/checkout"
	"MiniShop/internal/order"
	"MiniShop/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db      *storage.DB
	catalog *catalog.SQLStore
	cart    *cart.Cart
	orders  *order.SQLStore
	engine  *checkout.Engine
	spans   *tracetest.SpanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	products := catalog.NewSQLStore(db)
	c := cart.New(products)

	return &fixture{
		db:      db,
		catalog: products,
		cart:    c,
		orders:  order.NewSQLStore(db),
		spans:   spans,
		engine: &checkout.Engine{
			DB:      db,
			Cart:    c,
			Log:     zap.NewNop(),
			Metrics: checkout.NewMetrics(prometheus.NewRegistry()),
			Now:     func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) },
			Tracer:  tp.Tracer("test"),
		},
	}
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	return n
}

func TestCheckout_TeaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("19.90"))
	require.NoError(t, err)
	require.Equal(t, int64(1), tea.ID)

	require.NoError(t, f.cart.Add(ctx, tea.ID, 2))
	before, err := f.cart.Read(ctx)
	require.NoError(t, err)
	require.Len(t, before.Lines, 1)
	assert.True(t, before.Lines[0].Subtotal.Equal(dec("39.80")))
	assert.True(t, before.Total.Equal(dec("39.80")))

	receipt, err := f.engine.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.OrderID)
	assert.True(t, receipt.Total.Equal(before.Total), "total=%s", receipt.Total)

	after, err := f.cart.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, after.Lines)
	assert.True(t, after.Total.IsZero())

	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 1)
	l := orders[0].Lines[0]
	assert.Equal(t, tea.ID, l.ProductID)
	assert.Equal(t, 2, l.Qty)
	assert.True(t, l.Price.Equal(dec("19.90")))
	assert.True(t, l.Subtotal.Equal(dec("39.80")))
	assert.True(t, orders[0].Total.Equal(dec("39.80")))
	assert.True(t, orders[0].CreatedAt.Equal(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Checkout(ctx)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.engine.Metrics.Checkouts.WithLabelValues("empty")))
}

func TestCheckout_OnlyOrphanedLinesIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("1"))
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, tea.ID, 1))
	require.NoError(t, f.catalog.Delete(ctx, tea.ID))

	_, err = f.engine.Checkout(ctx)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	assert.Zero(t, f.orderCount(t))
}

func TestCheckout_SecondCallFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("19.90"))
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, tea.ID, 1))

	_, err = f.engine.Checkout(ctx)
	require.NoError(t, err)

	_, err = f.engine.Checkout(ctx)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestCheckout_FreezesPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("19.90"))
	require.NoError(t, err)
	milk, err := f.catalog.Create(ctx, "Milk", dec("3.49"))
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, tea.ID, 1))
	require.NoError(t, f.cart.Add(ctx, milk.ID, 3))

	receipt, err := f.engine.Checkout(ctx)
	require.NoError(t, err)
	assert.True(t, receipt.Total.Equal(dec("30.37")), "total=%s", receipt.Total)

	newPrice := dec("99")
	newName := "Black tea"
	_, err = f.catalog.Update(ctx, tea.ID, catalog.Patch{Name: &newName, Price: &newPrice})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, milk.ID))

	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 2)
	assert.Equal(t, "Tea", orders[0].Lines[0].Name)
	assert.True(t, orders[0].Lines[0].Price.Equal(dec("19.90")))
	assert.Equal(t, "Milk", orders[0].Lines[1].Name)
	assert.True(t, orders[0].Total.Equal(receipt.Total))
}

func TestCheckout_StorageFaultRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("19.90"))
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, tea.ID, 2))

	// The order row goes in first; failing the line insert proves the order
	// insert is undone too.
	_, err = f.db.Exec(`
		CREATE TRIGGER fail_order_lines BEFORE INSERT ON order_lines
		BEGIN
			SELECT RAISE(ABORT, 'injected fault');
		END
	`)
	require.NoError(t, err)

	_, err = f.engine.Checkout(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Zero(t, f.orderCount(t))

	snap, err := f.cart.Read(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Qty)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.engine.Metrics.Checkouts.WithLabelValues("error")))
	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "checkout", ended[0].Name())
	assert.Equal(t, otelcodes.Error, ended[0].Status().Code)

	_, err = f.db.Exec(`DROP TRIGGER fail_order_lines`)
	require.NoError(t, err)

	receipt, err := f.engine.Checkout(ctx)
	require.NoError(t, err)
	assert.True(t, receipt.Total.Equal(dec("39.80")))
	assert.Equal(t, 1, f.orderCount(t))
}

func TestCheckout_ConcurrentCallsProduceOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tea, err := f.catalog.Create(ctx, "Tea", dec("19.90"))
	require.NoError(t, err)
	require.NoError(t, f.cart.Add(ctx, tea.ID, 2))

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		empty   int
		unknown []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Checkout(ctx)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrEmptyCart):
				empty++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, empty)
	assert.Equal(t, 1, f.orderCount(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.engine.Metrics.Checkouts.WithLabelValues("ok")))
}
