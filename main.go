package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/api"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/checkpoint"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/config"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/hitl"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/hub"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/negotiation"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/pipeline"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/schedule"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/steps"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/store"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/ws"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/policy"
)

func main() {
	// Load .env if present; real environment wins
	_ = godotenv.Load()

	cfg := config.Load()

	log.Printf("Starting jobstream backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Checkpoint dir: %s", cfg.CheckpointDir)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize checkpoint store
	checkpoints, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		log.Fatalf("Failed to initialize checkpoint store: %v", err)
	}

	// Initialize session hub and HITL coordinator
	sessions := hub.New()
	coordinator := hitl.New(sessions.Send)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Wire the pipeline
	registry := steps.NewRegistry(steps.Deps{
		Searcher:    &steps.LocalSearcher{},
		Profiles:    &steps.FileProfileLoader{Path: cfg.ProfilePath},
		Scorer:      steps.KeywordScorer{},
		Researcher:  steps.TemplateResearcher{},
		Tailor:      &steps.TemplateTailor{OutDir: cfg.TailorOutDir},
		Outreach:    steps.TemplateOutreach{},
		Submitter:   &steps.LocalSubmitter{},
		Policy:      policyEngine,
		HITL:        coordinator,
		Recorder:    db,
		HITLTimeout: cfg.HITLTimeout,
	})
	executor := pipeline.NewExecutor(registry, checkpoints, sessions, db)
	runs := pipeline.NewManager(executor, db, coordinator, cfg.ScoreThreshold, cfg.MaxJobs)

	// Negotiation engine
	negotiator := negotiation.New(negotiation.ScriptedGenerator{})

	// Initialize handlers
	h := api.NewHandler(runs, db, negotiator)
	wsServer := ws.NewServer(cfg, sessions, coordinator)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)
	e.GET("/ws", wsServer.HandleWebSocket)

	// Optional recurring search runs
	scheduler := schedule.New(runs)
	if cfg.SearchCron != "" && cfg.SearchQuery != "" {
		req := domain.StartRunRequest{
			SessionID: "sess_scheduled",
			Query:     cfg.SearchQuery,
		}
		if err := scheduler.Add("recurring_search", cfg.SearchCron, req); err != nil {
			log.Fatalf("Failed to register search schedule: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down jobstream backend...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
