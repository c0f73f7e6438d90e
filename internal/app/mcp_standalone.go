package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reportwiz/internal/config"
	mcpserver "reportwiz/internal/mcp"
	"reportwiz/internal/secret"
	"reportwiz/internal/service"
	"reportwiz/internal/storage"
)

// App owns every long-lived component of one reportwiz process.
type App struct {
	cfg      config.Config
	db       *storage.DB
	reports  *service.ReportService
	health   *service.HealthMonitor
	watcher  *service.TemplateWatcher
	emitter  service.EventEmitter
	shutdown []func()
}

// New opens storage and wires the services. Close must be called.
func New(cfg config.Config, emitter service.EventEmitter) (*App, error) {
	db, err := storage.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	secrets := secret.NewStore(cfg.SecretBackend, cfg.DataDir)
	cipher, err := secret.LoadOrCreateCipher(secrets)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load cipher: %w", err)
	}

	reports := service.NewReportService(
		cfg,
		storage.NewProfileStore(db),
		storage.NewFetchLogStore(db),
		cipher,
		emitter,
	)

	return &App{
		cfg:     cfg,
		db:      db,
		reports: reports,
		health:  service.NewHealthMonitor(reports, emitter, cfg.HealthSchedule),
		watcher: service.NewTemplateWatcher(reports, emitter, cfg.TemplatesFile),
		emitter: emitter,
	}, nil
}

// Reports exposes the report service.
func (a *App) Reports() *service.ReportService { return a.reports }

// Startup starts the background monitors. Failures are logged; the engine
// works without them.
func (a *App) Startup(ctx context.Context) {
	if err := a.health.Start(ctx); err != nil {
		log.Printf("[HEALTH] not started: %v", err)
	} else {
		a.shutdown = append(a.shutdown, a.health.Stop)
	}
	if err := a.watcher.Start(ctx); err != nil {
		log.Printf("[TEMPLATES] watcher not started: %v", err)
	} else {
		a.shutdown = append(a.shutdown, a.watcher.Stop)
	}
}

// Close stops the monitors, drains in-flight fetches and closes storage.
func (a *App) Close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i]()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.reports.Close(ctx)
	if err := a.db.Close(); err != nil {
		log.Printf("[APP] close database: %v", err)
	}
}

// ServeMCP runs reportwiz as a standalone MCP server on stdin/stdout.
// envFile may be empty.
func ServeMCP(envFile string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := New(cfg, service.LogEmitter{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()
	a.Startup(ctx)

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:         a.emitter,
		Reports:         a.reports,
		ConfirmForce:    cfg.MCP.ConfirmForce,
		ApprovalTimeout: cfg.MCP.ApprovalTimeout,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- mcpSrv.ServeStdio() }()

	select {
	case <-ctx.Done():
		log.Println("[MCP] shutting down")
	case err := <-errCh:
		if err != nil {
			log.Printf("MCP server error: %v", err)
		}
	}
}
