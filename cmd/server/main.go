package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/portrait-booth/internal/config"
	"github.com/iliyamo/portrait-booth/internal/database"
	"github.com/iliyamo/portrait-booth/internal/handler"
	"github.com/iliyamo/portrait-booth/internal/mailer"
	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/payment"
	"github.com/iliyamo/portrait-booth/internal/pricing"
	"github.com/iliyamo/portrait-booth/internal/queue"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/router"
	"github.com/iliyamo/portrait-booth/internal/service"
	"github.com/iliyamo/portrait-booth/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orders := repository.NewOrderRepo(db)
	items := repository.NewOrderItemRepo(db)
	settings := repository.NewSettingRepo(db)
	reports := repository.NewReportRepo(db)

	presigner, err := newPresigner(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	mail := newMailer(cfg)

	prices := pricing.Pricing{BasePrice: cfg.BasePrice, UnitPrice: cfg.UnitPrice}
	orderSvc := service.NewOrderService(orders, items, users, settings, prices)
	orderSvc.Storage = presigner
	orderSvc.Queries = orders
	if cfg.Stripe.Enabled() {
		orderSvc.Gateway = payment.NewStripeGateway(cfg.Stripe.Key, cfg.Stripe.PriceID, cfg.AppURL)
	} else {
		log.Printf("stripe: STRIPE_KEY or PHOTO_PRICING_ID not set, card payments disabled")
	}
	if cfg.AMQPURL != "" {
		orderSvc.Ready = queue.NewPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartReadyConsumer(ctx, cfg.AMQPURL, mail.SendOrderReady); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("order-ready-consumer: stopped: %v", err)
			}
		}()
	} else {
		orderSvc.Ready = queue.Inline(mail.SendOrderReady)
	}
	itemSvc := service.NewItemService(orders, items, presigner)
	adminSvc := service.NewAdminService(settings, reports, users, tokens)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, users, tokens, mail),
		Orders: handler.NewOrderHandler(orderSvc),
		Items:  handler.NewItemHandler(itemSvc),
		Admin:  handler.NewAdminHandler(adminSvc),
		Public: handler.NewPublicHandler(orderSvc, prices),
	}, router.Options{
		JWTSecret:   cfg.JWTSecret,
		Users:       users,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		ReportCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newPresigner(cfg config.Config) (service.Presigner, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case "supabase":
		if sc.SupabaseURL == "" || sc.SupabaseKey == "" {
			return nil, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase driver")
		}
		return storage.NewSupabasePresigner(sc.SupabaseURL, sc.SupabaseKey, sc.SupabaseBucket, sc.GetTTL), nil
	case "s3", "":
		s3, err := storage.NewS3Presigner(storage.S3Config{
			Endpoint:  sc.S3Endpoint,
			Region:    sc.S3Region,
			Bucket:    sc.S3Bucket,
			AccessKey: sc.S3AccessKey,
			SecretKey: sc.S3SecretKey,
			UseSSL:    sc.S3UseSSL,
			PutExpiry: sc.PutTTL,
			GetExpiry: sc.GetTTL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	return nil, errors.New("unknown STORAGE_DRIVER " + sc.Driver)
}

func newMailer(cfg config.Config) mailer.Mailer {
	if cfg.Mail.Relay == "" {
		log.Printf("mailer: SMTP_RELAY not set, mail is written to the log")
		return mailer.LogMailer{Printf: log.Printf}
	}
	return mailer.NewSMTPMailer(mailer.Config{
		Relay:    cfg.Mail.Relay,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
}
