package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lexrelay/internal/app"
	"lexrelay/internal/catalog"
	"lexrelay/internal/config"
	"lexrelay/internal/payment"
	"lexrelay/internal/server"
	"lexrelay/internal/store"
	"lexrelay/internal/usertoken"
	"lexrelay/internal/util"
	"lexrelay/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.InitLogger(cfg.LogLevel)

	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		Secret:   cfg.SessionTokenSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   time.Duration(cfg.JWTLeewaySeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	catalogTTL := time.Duration(cfg.CatalogTTLSeconds) * time.Second
	if catalogTTL <= 0 {
		catalogTTL = 5 * time.Minute
	}
	catalogCache, err := catalog.NewCache(
		catalog.NewClient(cfg.ContentAPIURL, cfg.ContentAPIToken),
		cfg.RedisAddr, cfg.RedisPassword, catalogTTL,
	)
	if err != nil {
		log.Fatalf("failed to init catalog cache: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:           db,
		Objects:         objects,
		Catalog:         catalogCache,
		Payments:        payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey),
		BaseURL:         cfg.BaseURL,
		DefaultCurrency: cfg.DefaultCurrency,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		TokenVerifier:              tokenVerifier,
		WebhookSecret:              cfg.WebhookSecret,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		CheckoutRateLimitPerMinute: cfg.CheckoutRateLimitPerMinute,
		GenerateRateLimitPerMinute: cfg.GenerateRateLimitPerMinute,
		WebhookRateLimitPerMinute:  cfg.WebhookRateLimitPerMinute,
		MaxUploadBytes:             cfg.MaxUploadBytes,
		WebURL:                     cfg.WebURL,
		LoginURL:                   cfg.LoginURL,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("store server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
