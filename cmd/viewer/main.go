package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"building-viewer/internal/common/config"
	"building-viewer/internal/common/docs"
	"building-viewer/internal/common/middleware"
	"building-viewer/internal/viewer/asset"
	"building-viewer/internal/viewer/handlers"
	"building-viewer/internal/viewer/indexer"
	"building-viewer/internal/viewer/session"
	"building-viewer/internal/viewer/storage"
	"building-viewer/internal/viewer/views"
	"building-viewer/internal/viewer/watcher"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
)

// ============================================================
// Viewer Service
// ============================================================

func main() {
	cfg, err := config.Load(config.ViewerDefault())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ошибка загрузки ассета не фатальна: сервис остаётся не готовым,
	// пока файл не появится (при WATCH_ASSET) или не будет перезапуска.
	library := asset.NewLibrary(cfg.AssetPath)
	if err := library.Reload(ctx); err != nil {
		log.Printf("[VIEWER] Asset not loaded: %v", err)
	}

	var store views.Store
	if cfg.ViewsDBPath != "" {
		db, err := views.OpenSQLite(cfg.ViewsDBPath)
		if err != nil {
			log.Fatalf("open views db: %v", err)
		}
		defer db.Close()

		sqliteStore := views.NewSQLiteStore(db)
		if err := sqliteStore.Init(ctx, cfg.MigrationsPath); err != nil {
			log.Fatalf("init views db: %v", err)
		}
		store = sqliteStore
		log.Printf("[VIEWER] Saved views persisted in %s", cfg.ViewsDBPath)
	}

	schema := indexer.DefaultSchema()
	panoramas := storage.NewFileStorage(cfg.PanoramaRoot)
	manager := session.NewManager(session.Deps{
		Library:     library,
		Schema:      schema,
		Textures:    panoramas,
		Views:       store,
		LoadTimeout: cfg.LoadTimeout,
	})
	defer manager.CloseAll()

	go manager.Run(ctx, cfg.TickInterval)

	if cfg.WatchAsset {
		w, err := watcher.New(cfg.AssetPath, 0, func(ctx context.Context) error {
			if err := library.Reload(ctx); err != nil {
				return err
			}
			return manager.Rebuild()
		})
		if err != nil {
			log.Printf("[VIEWER] Asset watcher disabled: %v", err)
		} else {
			go w.Run(ctx)
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Viewer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Viewer Routes
	// ============================================================

	handlers.NewViewerHandler(manager, library, schema, panoramas).Register(app)

	app.Get("/docs/openapi.yaml", docs.Spec("docs/viewer.openapi.yaml"))
	if !cfg.IsProduction() {
		app.Get("/docs", docs.UI("Viewer Service", "/docs/openapi.yaml"))
	}

	// Веб-клиент
	app.Get("/*", static.New(cfg.WebRoot))

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down Viewer Service")
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Viewer Service on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Asset %s, panoramas under %s", cfg.AssetPath, cfg.PanoramaRoot)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
