package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bijouterie-be/internal/adminlog"
	"bijouterie-be/internal/cache"
	"bijouterie-be/internal/cart"
	"bijouterie-be/internal/category"
	"bijouterie-be/internal/config"
	"bijouterie-be/internal/db"
	"bijouterie-be/internal/events"
	"bijouterie-be/internal/favorite"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/middleware"
	"bijouterie-be/internal/order"
	"bijouterie-be/internal/payment"
	"bijouterie-be/internal/payment/webhook"
	"bijouterie-be/internal/product"
	"bijouterie-be/internal/storage"
	"bijouterie-be/internal/user"
	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	rdb := cache.New(cfg.RedisAddr)
	if rdb != nil {
		defer rdb.Close()
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, "bijouterie-be")
	if producer != nil {
		defer producer.Close()
	}

	store := storage.NewClient(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	auditLog := adminlog.NewRepository(database)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc, auditLog)

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, rdb)
	productHandler := product.NewHandler(productSvc, store, auditLog)

	categoryRepo := category.NewRepository(database)
	categoryHandler := category.NewHandler(categoryRepo, auditLog)

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, productRepo)
	cartHandler := cart.NewHandler(cartSvc)

	favoriteRepo := favorite.NewRepository(database)
	favoriteHandler := favorite.NewHandler(favoriteRepo)

	paymentRepo := payment.NewRepository(database)

	orderRepo := order.NewRepository(database, paymentRepo)
	orderSvc := order.NewService(orderRepo, cartRepo, productRepo, userRepo, gateway, producer)
	orderHandler := order.NewHandler(orderSvc, auditLog)

	webhookHandler := webhook.NewHandler(gateway, paymentRepo, orderSvc, rdb)

	adminLogHandler := adminlog.NewHandler(auditLog)

	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.AuthMiddleware)
	r.Use(middleware.RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})

	r.Get("/products", productHandler.ListCatalog)
	r.Get("/products/{id}", productHandler.Get)
	r.Get("/categories", categoryHandler.List)

	// Processor callbacks authenticate with the signature header, not a token.
	r.Post("/webhooks/stripe", webhookHandler.HandleStripe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", userHandler.Me)
		r.Put("/me", userHandler.UpdateProfile)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/", cartHandler.Add)
			r.Put("/{id}", cartHandler.UpdateQuantity)
			r.Delete("/{id}", cartHandler.Remove)
			r.Delete("/", cartHandler.Clear)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.List)
			r.Post("/", favoriteHandler.Add)
			r.Delete("/{productID}", favoriteHandler.Remove)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Checkout)
			r.Get("/", orderHandler.ListMine)
			r.Get("/{id}", orderHandler.Get)
			r.Post("/{id}/payment", orderHandler.CreatePaymentSession)
			r.Post("/{id}/confirm", orderHandler.ConfirmPayment)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(utils.RoleAdmin))

		r.Get("/dashboard", orderHandler.AdminDashboard)
		r.Get("/logs", adminLogHandler.List)

		r.Get("/users", userHandler.AdminListUsers)
		r.Put("/users/{id}/role", userHandler.AdminChangeRole)

		r.Get("/products", productHandler.AdminList)
		r.Post("/products", productHandler.AdminCreate)
		r.Put("/products/{id}", productHandler.AdminUpdate)
		r.Delete("/products/{id}", productHandler.AdminDelete)
		r.Post("/products/image", productHandler.AdminUploadImage)

		r.Post("/categories", categoryHandler.AdminCreate)
		r.Put("/categories/{id}", categoryHandler.AdminUpdate)
		r.Delete("/categories/{id}", categoryHandler.AdminDelete)

		r.Get("/orders", orderHandler.AdminList)
		r.Put("/orders/{id}/status", orderHandler.AdminUpdateStatus)
		r.Post("/orders/{id}/refund", orderHandler.AdminRefund)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Info("server listening", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}
