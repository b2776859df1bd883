package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ideagen-pipeline/config"
	"ideagen-pipeline/gateway"
	"ideagen-pipeline/handlers"
	"ideagen-pipeline/merge"
	"ideagen-pipeline/orchestrator"
	"ideagen-pipeline/publish"
	"ideagen-pipeline/session"
)

func main() {
	// Load .env (local dev only — deployments inject real env vars)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	for _, dir := range []string{cfg.Paths.Work, cfg.Paths.Artifacts} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	sess := session.New()
	if cfg.Session.SeedDemoClips {
		if err := sess.Seed(session.DemoClips()); err != nil {
			log.Fatalf("Failed to seed demo storyboard: %v", err)
		}
		log.Printf("🎬 Seeded demo storyboard with %d clips", len(sess.Clips()))
	}

	gw := gateway.New(cfg)
	h := handlers.New(cfg, sess, gw, orchestrator.New(gw), merge.New(cfg), publish.New(cfg))

	mux := http.NewServeMux()
	h.Routes(mux)

	handler := http.Handler(mux)
	if cfg.Server.AllowAllOrigins {
		handler = handlers.WithCORS(mux)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation runs poll remote operations for minutes; the write
		// timeout is the ceiling for one whole request, sized above the
		// poll bound so progress streams are not cut off mid-run.
		WriteTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	log.Printf("🚀 Ideagen backend listening on :%s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
