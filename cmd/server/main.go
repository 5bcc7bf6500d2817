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

	companyrepo "trasepad/backend/internal/company/repository"
	companyservice "trasepad/backend/internal/company/service"
	"trasepad/backend/internal/config"
	"trasepad/backend/internal/db"
	"trasepad/backend/internal/mailer"
	"trasepad/backend/internal/module"
	modulerepo "trasepad/backend/internal/module/repository"
	"trasepad/backend/internal/security"
	"trasepad/backend/internal/server"
	sessionrepo "trasepad/backend/internal/session/repository"
	sessionservice "trasepad/backend/internal/session/service"
	"trasepad/backend/internal/stats"
	statsrepo "trasepad/backend/internal/stats/repository"
	"trasepad/backend/internal/telemetry"
	"trasepad/backend/internal/telemetry/otel"
	"trasepad/backend/internal/telemetry/producer"
	userrepo "trasepad/backend/internal/user/repository"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "trasepad", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	var emitter telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.AccessKafkaBrokersList(), cfg.AccessKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	var outbound mailer.Mailer = mailer.NopMailer{}
	if cfg.SMTPHost != "" {
		outbound = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	} else if cfg.LoginMode == config.LoginModeEmail {
		log.Println("SMTP_HOST is not set; login-link delivery will fail in email mode")
	}

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	modules := modulerepo.NewPostgresRepository(conn)
	companies := companyrepo.NewPostgresRepository(conn)
	statsStore := statsrepo.NewPostgresRepository(conn)
	accessStats := stats.NewLogger(statsStore)

	sessionSvc := sessionservice.New(
		users,
		sessions,
		modules,
		outbound,
		security.NewHasher(cfg.BcryptCost),
		accessStats,
		sessionservice.Config{
			Mode:           sessionservice.Mode(cfg.LoginMode),
			AllowedDomains: cfg.AllowedDomains(),
			BaseURL:        cfg.BaseURL,
			MailFrom:       cfg.MailFrom,
			SessionTTL:     cfg.SessionExpiry(),
			AnonTTL:        cfg.AnonSessionExpiry(),
		},
	)

	router := server.NewRouter(server.Deps{
		Sessions:    sessionSvc,
		Registry:    module.NewRegistry(),
		Companies:   companyservice.New(companies),
		Modules:     modules,
		Stats:       statsStore,
		Pinger:      conn,
		Emitter:     emitter,
		ServiceName: "trasepad",
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Give in-flight async access-event emits time to complete before the
	// Kafka writer closes.
	if emitter != nil {
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	log.Println("HTTP server stopped")
}
