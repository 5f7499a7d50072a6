package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nolanmyles20/tacticaloffroad/internal/badge"
	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
	"github.com/nolanmyles20/tacticaloffroad/internal/catalog"
	"github.com/nolanmyles20/tacticaloffroad/internal/config"
	"github.com/nolanmyles20/tacticaloffroad/internal/db"
	"github.com/nolanmyles20/tacticaloffroad/internal/events"
	httpserver "github.com/nolanmyles20/tacticaloffroad/internal/http"
	"github.com/nolanmyles20/tacticaloffroad/internal/kv"
	"github.com/nolanmyles20/tacticaloffroad/internal/shopify"
	"github.com/nolanmyles20/tacticaloffroad/internal/storefront"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable storage: Postgres when configured, otherwise process memory.
	var store kv.Store
	if cfg.DatabaseDSN != "" {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("run migrations: %v", err)
		}
		database, err := db.Open(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		defer database.Close()
		store = kv.NewPostgres(database)
	} else {
		logger.Printf("no STOREFRONT_DB_DSN set, cart state is in-memory")
		store = kv.NewMemory()
	}

	cat, err := catalog.LoadFile(cfg.ProductsPath)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}

	// Cross-session pings: local bus, optionally bridged over RabbitMQ.
	bus := events.NewBus()
	origin := uuid.NewString()

	var checkoutPublisher storefront.CheckoutPublisher
	if cfg.RabbitURL != "" {
		rabbitConn := events.MustDialRabbit(cfg.RabbitURL)
		defer rabbitConn.Close()

		publisher, err := events.NewRabbitPublisher(rabbitConn, origin)
		if err != nil {
			logger.Fatalf("create publisher: %v", err)
		}
		defer publisher.Close()
		bus.AttachPublisher(publisher)
		checkoutPublisher = publisher

		if err := events.StartCartChangedConsumer(ctx, rabbitConn, origin, bus, logger); err != nil {
			logger.Fatalf("start cart.changed consumer: %v", err)
		}
	}

	cartStore := cart.NewStore(store, bus, logger)

	shopifyClient := shopify.NewClient(shopify.Config{
		Shop:       cfg.Shop,
		Token:      cfg.StorefrontToken,
		APIVersion: cfg.StorefrontAPIVersion,
	}, &http.Client{Timeout: cfg.RemoteTimeout}, store, logger)

	reconciler := badge.New(cartStore, shopifyClient, logger,
		badge.WithInterval(cfg.BadgeInterval),
		badge.WithRemoteTimeout(cfg.RemoteTimeout),
	)

	session := storefront.NewSession(cartStore, cat, shopifyClient, reconciler, checkoutPublisher, logger)

	pings, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	go reconciler.Run(ctx, pings)

	handler := httpserver.NewStorefrontHandler(session)
	mux := httpserver.NewRouter(handler, cfg.CORSAllowOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("storefront listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		logger.Fatalf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown error: %v", err)
	}
}
