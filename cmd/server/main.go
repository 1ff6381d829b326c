package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/config"
	"github.com/fieldrent/field-rental-marketplace/internal/database"
	"github.com/fieldrent/field-rental-marketplace/internal/handler"
	"github.com/fieldrent/field-rental-marketplace/internal/queue"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
	"github.com/fieldrent/field-rental-marketplace/internal/router"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache, rate limiting and webhook fast path disabled")
	}

	fieldRepo := repository.NewFieldRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	promoRepo := repository.NewPromotionRepo(db)
	walletRepo := repository.NewWalletRepo(db)
	payoutRepo := repository.NewPayoutRepo(db)
	shopRepo := repository.NewShopRepo(db)

	runTx := func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return repository.InTx(ctx, db, fn)
	}

	publisher := queue.NewPublisher()
	reaper := service.NewHoldReaper(slotRepo, bookingRepo, promoRepo, runTx)
	promotions := service.NewPromotionEvaluator(promoRepo)
	reservations := service.NewReservationService(fieldRepo, slotRepo, bookingRepo, paymentRepo,
		promotions, promoRepo, reaper, runTx)
	bookings := service.NewBookingService(fieldRepo, slotRepo, slotRepo, bookingRepo, promoRepo, reaper, runTx)
	payments := service.NewPaymentService(paymentRepo, bookingRepo, slotRepo, walletRepo, fieldRepo, publisher, runTx)
	payouts := service.NewPayoutService(shopRepo, walletRepo, payoutRepo, publisher, runTx)
	matcher := service.NewWebhookMatcher(paymentRepo, payments, rdb)

	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Bookings:   handler.NewBookingHandler(reservations, bookings),
		Promotions: handler.NewPromotionHandler(promotions),
		Payments:   handler.NewPaymentHandler(payments),
		Payouts:    handler.NewPayoutHandler(payouts, shopRepo),
		Wallets:    handler.NewWalletHandler(walletRepo, shopRepo),
		Webhooks:   handler.NewWebhookHandler(matcher),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
