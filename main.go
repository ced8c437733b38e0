package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wayfare/auth"
	"wayfare/bookings"
	"wayfare/config"
	"wayfare/db"
	"wayfare/email"
	"wayfare/logger"
	"wayfare/middleware"
	"wayfare/models"
	"wayfare/payment"
	"wayfare/ratelim"
	"wayfare/rdx"
	"wayfare/reviews"
	"wayfare/routes"
	"wayfare/store"
	"wayfare/tours"
	"wayfare/users"
	"wayfare/views"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request method, path, remote address, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	if err := database.EnsureIndexes(ctx); err != nil {
		return err
	}

	cache, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		// The app degrades to uncached operation without Redis.
		slog.Warn("redis unavailable, caching disabled", "err", err)
		cache = nil
	}

	tourStore := store.NewMongo[models.Tour](database.Tours, bson.M{"secrettour": bson.M{"$ne": true}})
	userStore := store.NewMongo[models.User](database.Users, bson.M{"active": bson.M{"$ne": false}})
	reviewStore := store.NewMongo[models.Review](database.Reviews, nil)
	bookingStore := store.NewMongo[models.Booking](database.Bookings, nil)

	guard := &middleware.Guard{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.JWTTTL,
		CookieName: cfg.CookieName,
		CookieTTL:  cfg.CookieTTL,
		Secure:     cfg.CookieSecure,
		Dev:        cfg.Dev,
		Resolver: middleware.ResolverFunc(func(ctx context.Context, id string) (*models.User, error) {
			return userStore.FindOne(ctx, bson.M{"_id": id, "active": bson.M{"$ne": false}})
		}),
	}

	mailer := email.New(cfg)
	pay := &payment.Client{
		Key:           cfg.PaymentKey,
		WebhookSecret: []byte(cfg.PaymentWebhookSecret),
		BaseURL:       cfg.PublicBaseURL,
	}

	viewHandlers, err := views.New(tourStore, userStore, reviewStore, bookingStore, cfg.Dev)
	if err != nil {
		return err
	}

	deps := &routes.Deps{
		Limiter: ratelim.NewRateLimiter(),
		Guard:   guard,
		Auth: &auth.Handlers{
			Users:   userStore,
			Guard:   guard,
			Mailer:  mailer,
			BaseURL: cfg.PublicBaseURL,
			Dev:     cfg.Dev,
		},
		Tours: &tours.Handlers{
			Tours:     tourStore,
			Users:     userStore,
			Reviews:   reviewStore,
			Cache:     cache,
			UploadDir: cfg.UploadDir,
			Dev:       cfg.Dev,
		},
		Reviews: &reviews.Handlers{
			Reviews: reviewStore,
			Tours:   tourStore,
			Dev:     cfg.Dev,
		},
		Users: &users.Handlers{
			Users:     userStore,
			UploadDir: cfg.UploadDir,
			Dev:       cfg.Dev,
		},
		Bookings: &bookings.Handlers{
			Bookings: bookingStore,
			Tours:    tourStore,
			Users:    userStore,
			Sessions: database.Sessions,
			Cache:    cache,
			Pay:      pay,
			Mailer:   mailer,
			Dev:      cfg.Dev,
		},
		Views: viewHandlers,
	}

	router := httprouter.New()
	routes.RoutesWrapper(router, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.PublicBaseURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           requestLogger(securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	slog.Info("shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if err := database.Close(shutdownCtx); err != nil && err != mongo.ErrClientDisconnected {
		slog.Warn("mongo close failed", "err", err)
	}

	slog.Info("server stopped cleanly")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}
