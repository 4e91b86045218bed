package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/checkout"
	"MiniShop/internal/config"
	"MiniShop/internal/order"
	"MiniShop/internal/shop"
	"MiniShop/internal/storage"
	"MiniShop/pkg/kit"
)

const service = "shop"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("shop stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.TraceStdout {
		shutdown, err := kit.InitTracing(service, os.Stdout)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		return err
	}
	log.Info("database ready", zap.String("driver", string(db.Driver())))

	products := catalog.NewSQLStore(db)
	if cfg.SeedDemo {
		n, err := catalog.Seed(ctx, products, catalog.DemoProducts)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if n > 0 {
			log.Info("seeded demo catalog", zap.Int("products", n))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := cart.New(products)
	s := &shop.Server{
		Catalog: products,
		Cart:    c,
		Orders:  order.NewSQLStore(db),
		Log:     log,
		Checkout: &checkout.Engine{
			DB:      db,
			Cart:    c,
			Log:     log,
			Metrics: checkout.NewMetrics(reg),
		},
	}

	h := shop.NewHandler(s, shop.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          reg,
		MetricsToken:      cfg.MetricsToken,
		CheckoutPerMinute: cfg.CheckoutPerMinute,
	})

	return kit.RunHTTPServer(ctx, kit.ServerConfig{Addr: ":" + cfg.Port}, h, log)
}
