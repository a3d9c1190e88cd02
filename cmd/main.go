package main

import (
	"context"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saqibmurtaza/ai-mart/internal/cart"
	"github.com/saqibmurtaza/ai-mart/internal/catalog"
	"github.com/saqibmurtaza/ai-mart/internal/checkout"
	"github.com/saqibmurtaza/ai-mart/internal/config"
	"github.com/saqibmurtaza/ai-mart/internal/db"
	"github.com/saqibmurtaza/ai-mart/internal/events"
	httpserver "github.com/saqibmurtaza/ai-mart/internal/http"
	"github.com/saqibmurtaza/ai-mart/internal/order"
	"github.com/saqibmurtaza/ai-mart/internal/payment"
	"github.com/saqibmurtaza/ai-mart/internal/promo"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stdout, "[ai-mart] ", log.LstdFlags|log.Lshortfile)

	// DB
	database := db.MustOpen(cfg.DatabaseDSN)
	if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}

	orderRepo := order.NewRepository(database)
	cartRepo := cart.NewRepository(database)
	catalogRepo := catalog.NewRepository(database)
	promoRepo := promo.NewRepository(database)

	// RabbitMQ
	rabbitConn := events.MustDialRabbit(cfg.RabbitURL)
	defer rabbitConn.Close()

	publisher, err := events.NewPublisher(rabbitConn)
	if err != nil {
		logger.Fatalf("publisher: %v", err)
	}

	// Sanity CMS. Without a project id the catalog runs mirror-only.
	var fetcher catalog.ProductFetcher
	if cfg.SanityProjectID != "" {
		fetcher = catalog.NewSanityClient(cfg.SanityProjectID, cfg.SanityDataset, cfg.SanityAPIVersion, nil)
	}
	lookup := catalog.NewLookup(catalogRepo, fetcher)
	syncService := catalog.NewSyncService(catalogRepo, logger)

	// PayPal
	provider := payment.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalWebhookID, nil)

	reconciler := checkout.NewReconciler(orderRepo, cartRepo, lookup, provider, publisher, logger)

	// HTTP
	mux := httpserver.NewRouter(httpserver.Handlers{
		Orders:   httpserver.NewOrderHandler(orderRepo),
		Checkout: httpserver.NewCheckoutHandler(reconciler, logger),
		Webhooks: httpserver.NewWebhookHandler(syncService, reconciler, provider, cfg.SanityWebhookSecret, cfg.WebhookTolerance, logger),
		Cart:     httpserver.NewCartHandler(cartRepo, lookup),
		Products: httpserver.NewProductHandler(catalogRepo),
		Promos:   httpserver.NewPromoHandler(promoRepo),
	})

	srv := &stdhttp.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Printf("ai-mart listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
