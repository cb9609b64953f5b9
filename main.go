package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/config"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/metrics"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/router"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	if err := cfg.Midtrans.Validate(); err != nil {
		utils.ErrorLogger.Warnf("Midtrans is not fully configured: %v", err)
	}

	m := metrics.New()
	hub := kds.NewHub()
	tokens := utils.NewTokenManager(cfg.JWTSecret)
	gateway := services.NewMidtransGateway(cfg.Midtrans)
	notifier := services.NewChannelNotifier(cfg.Mail, cfg.SMS)

	r := router.SetupRouter(router.Dependencies{
		Tokens:      tokens,
		Users:       services.NewUserService(db, tokens),
		Foods:       services.NewFoodService(db),
		Tables:      services.NewTableService(db, hub, m),
		Checkout:    services.NewCheckoutService(db, gateway, cfg.FrontendURL, hub, m),
		OTP:         services.NewOTPService(db, notifier, tokens, m),
		Hub:         hub,
		Metrics:     m,
		CORSOrigin:  cfg.CORSOrigin,
		RateLimiter: middlewares.NewIPRateLimiter(cfg.OTPRatePerMinute),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
	utils.InfoLogger.Info("Server stopped")
}
