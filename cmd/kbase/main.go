package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/chunker"
	"github.com/xxxsen/kbase/internal/config"
	"github.com/xxxsen/kbase/internal/db"
	"github.com/xxxsen/kbase/internal/embed"
	"github.com/xxxsen/kbase/internal/embedcache"
	"github.com/xxxsen/kbase/internal/handler"
	"github.com/xxxsen/kbase/internal/job"
	"github.com/xxxsen/kbase/internal/middleware"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/repo"
	"github.com/xxxsen/kbase/internal/schedule"
	"github.com/xxxsen/kbase/internal/service"
	"github.com/xxxsen/kbase/internal/source"
	"github.com/xxxsen/kbase/internal/vector"
)

const version = "1.0.0"

type app struct {
	cfg     *config.Config
	db      *sql.DB
	docs    *repo.DocumentRepo
	chunks  *repo.ChunkRepo
	syncLog *repo.SyncLogRepo
	cache   *repo.EmbeddingCacheRepo
	ingest  *service.IngestService
	search  *service.SearchService
	filter  *source.Filter
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kbase",
		Short: "knowledge base indexing and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the kbase server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			defer a.db.Close()
			return runServer(a)
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "run one full sync and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			defer a.db.Close()
			return runOnce(a)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	syncLogRepo := repo.NewSyncLogRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	if cfg.AI.DBCache {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	if cfg.AI.CacheSize > 0 {
		ttl := time.Duration(cfg.AI.CacheTTLMin) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.CacheSize, ttl)
	}
	orchestrator := embed.NewOrchestrator(embedder, cfg.AI.BatchSize, time.Duration(cfg.AI.BatchDelayMS)*time.Millisecond)

	filter := source.NewFilter(cfg.Ingest)
	src, err := source.New(cfg.Source, filter)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init source: %w", err)
	}

	index := vector.NewPGIndex(conn)
	ck := chunker.New(chunker.Config{ChunkSize: cfg.Ingest.ChunkSize, MinChunkSize: cfg.Ingest.MinChunkSize})
	ingestSvc := service.NewIngestService(src, docRepo, chunkRepo, index, orchestrator, ck, syncLogRepo, service.IngestConfig{
		MaxFiles:  cfg.Ingest.MaxFiles,
		MaxChunks: cfg.Ingest.MaxChunks,
	})
	searchSvc := service.NewSearchService(orchestrator, index, chunkRepo)

	return &app{
		cfg:     cfg,
		db:      conn,
		docs:    docRepo,
		chunks:  chunkRepo,
		syncLog: syncLogRepo,
		cache:   cacheRepo,
		ingest:  ingestSvc,
		search:  searchSvc,
		filter:  filter,
	}, nil
}

func runServer(a *app) error {
	cfg := a.cfg
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("source", cfg.Source.Type),
		zap.String("provider", cfg.AI.Provider),
	)

	deps := handler.RouterDeps{
		RPC:     handler.NewRPCHandler(a.search, "kbase", version),
		Webhook: handler.NewWebhookHandler(a.ingest, a.filter, cfg.WebhookSec),
		Sync:    handler.NewSyncHandler(a.ingest, a.syncLog),
		Health:  handler.NewHealthHandler(a.docs, a.chunks, version),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.New()
	if spec := cfg.Schedule.SyncSpec; spec != "" {
		if err := scheduler.Register(spec, job.NewSyncJob(a.ingest)); err != nil {
			return fmt.Errorf("schedule sync job: %w", err)
		}
	}
	reconcileSpec := cfg.Schedule.ReconcileSpec
	if reconcileSpec == "" {
		reconcileSpec = "*/30 * * * *"
	}
	staleAfter := time.Duration(cfg.Schedule.StaleAfterMins) * time.Minute
	if err := scheduler.Register(reconcileSpec, job.NewStaleRunReconcileJob(a.syncLog, staleAfter)); err != nil {
		return fmt.Errorf("schedule reconcile job: %w", err)
	}
	if cfg.AI.DBCache {
		if err := scheduler.Register("0 4 * * *", job.NewEmbeddingCacheCleanupJob(a.cache, 30)); err != nil {
			return fmt.Errorf("schedule cache cleanup job: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runOnce(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := a.ingest.RunFull(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("sync completed",
		zap.Int64("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("files_processed", run.FilesProcessed),
		zap.Int("chunks_created", run.ChunksCreated),
		zap.Int("vectors_uploaded", run.VectorsUploaded),
	)
	if run.Status != model.SyncStatusCompleted {
		if run.ErrorMessage != nil {
			return fmt.Errorf("sync finished with status %s: %s", run.Status, *run.ErrorMessage)
		}
		return fmt.Errorf("sync finished with status %s", run.Status)
	}
	return nil
}
