package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/assignment"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/httpapi"
	"clienthub.org/internal/obs"
	"clienthub.org/internal/policy"
	"clienthub.org/internal/resource"
)

var version = "0.3.0"

func main() {
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("CLIENTHUB_COMMIT"))

	dsn := os.Getenv("CLIENTHUB_PG_DSN")
	if dsn == "" {
		log.Fatal("missing CLIENTHUB_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	actorStore := actor.NewPGStore(db)
	directory, err := actor.NewDirectory(actorStore)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}
	actors, err := actor.NewService(actorStore)
	if err != nil {
		log.Fatalf("actor service: %v", err)
	}
	engine, err := policy.NewEngine(assignment.NewPGIndex(db))
	if err != nil {
		log.Fatalf("policy engine: %v", err)
	}
	recorder, err := audit.NewRecorder(audit.NewPGStore(db))
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}

	api, err := httpapi.New(httpapi.ReadyProbe{DB: db}, version, httpapi.Deps{
		Directory: directory,
		Actors:    actors,
		Engine:    engine,
		Recorder:  recorder,
		Resources: resource.NewPGStore(db),
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	addr := os.Getenv("CLIENTHUB_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting clienthub-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
