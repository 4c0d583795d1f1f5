// Entry point of the signup backend. Initializes configuration, the
// PostgreSQL pool, the Redis client and the email sender, wires repositories
// into the signup service and handlers, sets up the HTTP router and
// middleware, and runs the server with graceful shutdown.
//
// @title Signup API
// @version 1.0
// @description Email+password registration backend with an email verification gate.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
	"github.com/user/zwitter-go/db"
	_ "github.com/user/zwitter-go/docs" // generated Swagger docs
	"github.com/user/zwitter-go/mail"
	"github.com/user/zwitter-go/signup"
	"github.com/user/zwitter-go/store"
	"github.com/user/zwitter-go/users"
)

func main() {
	// .env is a development convenience; in production the variables are set
	// directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb, err := db.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	// The email sender is the only collaborator with a development fallback:
	// without an SMTP host, codes go to the log.
	var sender signup.EmailSender
	if cfg.SMTP.Host != "" {
		smtpSender, err := mail.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatalf("Failed to create smtp sender: %v", err)
		}
		sender = smtpSender
	} else {
		sender = mail.NewLogSender()
	}

	// Wire repositories into the signup service and its handlers.
	userRepo := users.NewPostgresRepository(pool)
	codeRepo := store.NewRedisCodeStore(rdb)
	tmpUserRepo := store.NewRedisTemporaryUserStore(rdb, cfg.Signup.TmpUserTTL)

	signupService := signup.NewService(userRepo, codeRepo, tmpUserRepo, sender, *cfg.Signup)
	signupHandlers := signup.NewHandlers(signupService)
	userHandlers := users.NewHandlers(userRepo)

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic recovery that renders through the apperror taxonomy instead of a
	// bare 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewUnexpectedError("PANIC", nil))
				}
			}()
			next.ServeHTTP(ww, req)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/signup", func(r chi.Router) {
		r.Post("/email", signupHandlers.HandleRequestVerification())
		r.Post("/email/verify", signupHandlers.HandleValidateCode())
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", signupHandlers.HandleCreateUser())
		r.Get("/{userID}", userHandlers.HandleGetUser())
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"Unexpected","message":{"code":"ENCODE_RESPONSE"}}`, http.StatusInternalServerError)
	}
}
