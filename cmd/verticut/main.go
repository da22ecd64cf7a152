package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verticut/verticut/internal/api"
	"github.com/verticut/verticut/internal/config"
	"github.com/verticut/verticut/internal/fetch"
	"github.com/verticut/verticut/internal/handlers"
	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/media"
	"github.com/verticut/verticut/internal/repo"
	"github.com/verticut/verticut/internal/scenedetect"
	"github.com/verticut/verticut/internal/storage"
	"github.com/verticut/verticut/internal/store"
	"github.com/verticut/verticut/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./config/verticut.yaml)")
	port := flag.Int("port", 0, "Override HTTP port from config")
	dataDir := flag.String("data", "", "Override data directory from config")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		if envPath := os.Getenv("VERTICUT_CONFIG"); envPath != "" {
			cfgPath = envPath
		} else {
			cfgPath = "config/verticut.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Could not load config from %s: %v", cfgPath, err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.UploadsDir = ""
		cfg.ProcessedDir = ""
		cfg.CaptionsDir = ""
		cfg.DatabasePath = ""
		cfg.ApplyDefaults()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting verticut",
		"data_dir", cfg.DataDir,
		"database", cfg.DatabasePath,
		"workers", cfg.Workers,
	)

	dirs := storage.Dirs{
		Uploads:   cfg.UploadsDir,
		Processed: cfg.ProcessedDir,
		Captions:  cfg.CaptionsDir,
	}
	if err := dirs.Ensure(); err != nil {
		log.Fatalf("Failed to create artifact directories: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	repos := repo.New(st)

	proxy, err := repos.Users.EnsureAdmin(cfg.AdminConfigPath)
	if err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}
	if proxy == "" {
		proxy = cfg.Proxy
	}

	queue := jobs.NewQueue(repos.Jobs)
	pool := jobs.NewPool(queue, repos.Jobs, cfg.Workers)

	deps := &handlers.Deps{
		Cfg:         cfg,
		Repos:       repos,
		Encoder:     media.NewEncoder(cfg.FFmpegPath, cfg.ProcessTimeout),
		Prober:      media.NewProber(cfg.FFprobePath, cfg.ProbeTimeout),
		Fetcher:     fetch.NewFetcher(cfg.YtDlpPath, cfg.DownloadTimeout),
		Transcriber: transcribe.New(cfg.WhisperPath, cfg.WhisperModelDefault),
		Scenes:      scenedetect.New(cfg.SceneDetectPath, cfg.ProcessTimeout),
		Resolver:    storage.NewResolver(dirs),
		Proxy:       proxy,
	}
	handlers.Register(pool, deps)

	// Rehydrate the queue from the store (crash recovery), then start
	// the workers.
	if err := queue.Start(); err != nil {
		log.Fatalf("Failed to start job queue: %v", err)
	}
	pool.Start()

	handler := api.NewHandler(cfg, repos, queue, pool, deps.Resolver)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(handler),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		pool.Stop(true)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Goodbye")
}
