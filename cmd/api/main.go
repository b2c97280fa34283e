package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/http/handlers"
	imw "github.com/washloop/washloop-api/internal/http/middleware"
	"github.com/washloop/washloop-api/internal/mailer"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/internal/service"
	"github.com/washloop/washloop-api/internal/sms"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/internal/warming"
	"github.com/washloop/washloop-api/pkg/config"
	"github.com/washloop/washloop-api/pkg/database"
	"github.com/washloop/washloop-api/pkg/events"
	"github.com/washloop/washloop-api/pkg/logger"
	mw "github.com/washloop/washloop-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redisstore.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	verifyRepo := postgres.NewVerifyRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	loyaltyRepo := postgres.NewLoyaltyRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)

	// Redis-backed stores
	cooldowns := redisstore.NewCooldownStore(redisClient)
	idempotency := redisstore.NewIdempotencyStore(redisClient)
	warmCache := redisstore.NewAnalyticsCache(redisClient, cfg.Warming.CacheTTL)

	// Outbound providers
	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromAddress)
	}
	smsSender := sms.NewDevSender()

	// Services
	authService := service.NewAuthService(userRepo, verifyRepo, cooldowns, mail, smsSender, eventBus, cfg)
	orderService := service.NewOrderService(orderRepo, catalogRepo, eventBus)
	paymentService := service.NewPaymentService(orderRepo, userRepo, mail, eventBus, cfg)
	loyaltyService := service.NewLoyaltyService(loyaltyRepo, eventBus, cfg)
	tenantService := service.NewTenantService(tenantRepo, orderRepo, loyaltyRepo, userRepo, warmCache)
	catalogService := service.NewCatalogService(catalogRepo, warmCache)

	if err := loyaltyService.StartAccrual(); err != nil {
		logger.Error("Failed to start loyalty accrual subscriber", "error", err)
		os.Exit(1)
	}

	if cfg.Warming.Enabled {
		go warming.New(tenantRepo, catalogRepo, tenantService, warmCache).WarmAll(ctx)
	}

	h := handlers.New(authService, orderService, paymentService, loyaltyService, tenantService, catalogService, cfg)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("washloop-api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	secret := cfg.Auth.JWTSecret

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/signup", h.Signup)
		r.Post("/request-otp", h.RequestOTP)
		r.Post("/confirm-otp", h.ConfirmOTP)
		r.Post("/magic-link", h.RequestMagicLink)
		r.Post("/magic-login", h.MagicLogin)
		r.Get("/magic", h.MagicLogin)

		r.Group(func(r chi.Router) {
			r.Use(imw.RequireJWT(secret, ""))
			r.Get("/me", h.Me)
		})
	})

	r.Get("/services", h.ListServices)
	r.Get("/services/extras", h.ListExtras)
	r.Get("/tenant", h.TenantBranding)

	r.Route("/orders", func(r chi.Router) {
		r.Use(imw.RequireJWT(secret, ""))
		r.With(mw.Idempotency(idempotency)).Post("/create", h.CreateOrder)
		r.Get("/", h.ListMyOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/cancel", h.CancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(imw.RequireJWT(secret, domain.RoleStaff))
			r.Post("/{id}/redeem", h.RedeemOrder)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", h.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(imw.RequireJWT(secret, ""))
			r.Post("/intent", h.CreatePaymentIntent)
		})
	})

	r.Route("/loyalty", func(r chi.Router) {
		r.Use(imw.RequireJWT(secret, ""))
		r.Get("/me", h.MyLoyalty)
		r.Post("/redeem", h.RedeemReward)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(imw.RequireJWT(secret, domain.RoleAdmin))
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Patch("/users/{id}", h.UpdateUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Put("/users/{id}/role", h.UpdateUserRole)

		r.Get("/tenants", h.ListTenants)
		r.Patch("/tenants/{id}", h.UpdateTenant)
		r.Get("/tenants/{id}/modules", h.ListModuleFlags)
		r.Put("/tenants/{id}/modules", h.SetModuleFlag)

		r.Get("/analytics/summary", h.AnalyticsSummary)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting washloop-api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
