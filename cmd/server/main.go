package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"studyprep/internal/api"
	"studyprep/internal/config"
	"studyprep/internal/db"
	"studyprep/internal/metrics"
	"studyprep/internal/services"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	userService := services.NewUserService(conn)
	extractor := services.NewExtractorService()
	generator := services.NewGenerationService(cfg.GroqKey, cfg.GroqModel, cfg.GroqEndpoint, collector)
	exporter := services.NewExportService(collector)

	server := api.NewServer(api.Deps{
		PingMessage: cfg.PingMessage,
		CORSOrigin:  cfg.CORSAllowedOrigin,
		Logger:      logger,
		Metrics:     metrics.Handler(registry),

		Users:     userService,
		Extractor: extractor,
		Generator: generator,
		Papers:    services.NewPaperStore(),
		Sets:      services.NewQuestionSetStore(),
		Docs:      services.NewDocumentStore(),
		Exporter:  exporter,
		Study:     services.NewStudyService(),
	})

	log.Printf("listening on :%s", cfg.Port)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.Handler(),
		ReadTimeout: 15 * time.Second,
		// Question generation holds the response open for up to a minute
		// per chunk.
		WriteTimeout: 5 * time.Minute,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
