package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"accountd.org/internal/auth"
	"accountd.org/internal/httpapi"
	"accountd.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	addr := os.Getenv("ACCOUNTD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dsn := os.Getenv("ACCOUNTD_PG_DSN")
	if dsn == "" {
		log.Fatal("ACCOUNTD_PG_DSN is required")
	}
	accessSecret := os.Getenv("ACCOUNTD_ACCESS_SECRET")
	refreshSecret := os.Getenv("ACCOUNTD_REFRESH_SECRET")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	var issuerOpts []auth.IssuerOption
	if ttl := durationEnv("ACCOUNTD_ACCESS_TTL"); ttl > 0 {
		issuerOpts = append(issuerOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := durationEnv("ACCOUNTD_REFRESH_TTL"); ttl > 0 {
		issuerOpts = append(issuerOpts, auth.WithRefreshTTL(ttl))
	}
	issuer, err := auth.NewIssuer(accessSecret, refreshSecret, issuerOpts...)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	svc := auth.NewService(auth.NewPGStore(db), issuer)

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: db}, version)
	if origins := os.Getenv("ACCOUNTD_CORS_ORIGINS"); origins != "" {
		api.SetAllowedOrigins(strings.Split(origins, ","))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Event("info", "starting accountd-api", map[string]any{
		"version": version,
		"addr":    addr,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	obs.Event("info", "shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	obs.Event("info", "stopped", nil)
}

func durationEnv(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	return d
}
