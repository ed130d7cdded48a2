// Standalone dispatcher process. Runs the same pipeline as the API server's
// embedded worker, for deployments that scale processing separately.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/config"
	"github.com/clipcast/api/internal/logging"
	"github.com/clipcast/api/internal/pipeline"
	"github.com/clipcast/api/internal/store"
	"github.com/clipcast/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logging.New(cfg.Server.LogLevel)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	groqClient := client.NewGroqClient(&cfg.Groq)
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	scraperClient := client.NewScraperClient(&cfg.Scraper)
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	signedURLTTL := time.Duration(cfg.R2.SignedURLTTLDays) * 24 * time.Hour
	pipe := pipeline.New(st, scraperClient, groqClient, elevenLabsClient,
		r2Client, signedURLTTL, nil, slogger)

	dispatcher := worker.NewDispatcher(st, pipe,
		time.Duration(cfg.Worker.PollInterval)*time.Second,
		cfg.Worker.BatchSize, slogger)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slogger.Info("shutting down worker")
		cancel()
	}()

	dispatcher.Run(ctx)
}
