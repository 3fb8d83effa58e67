// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/connection"
	"printer-bridge/internal/discovery"
	"printer-bridge/internal/handler"
	"printer-bridge/internal/model"
	"printer-bridge/internal/routes"
	"printer-bridge/internal/service"
	"printer-bridge/internal/ticket"
	"printer-bridge/internal/transport"
	"printer-bridge/internal/transport/factory"
	"printer-bridge/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	transports *transport.Set
	scanners   *discovery.ScannerManager
	eventBus   *handler.EventBus
	manager    *connection.Manager

	printerService *service.PrinterService
	wsHandler      *handler.WebSocketHandler
}

func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "printer-bridge")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeTransports(); err != nil {
		return nil, fmt.Errorf("failed to initialize transports: %w", err)
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeTransports builds the transport set and the scanners over it
func (app *Application) initializeTransports() error {
	set, err := factory.CreateTransports(app.config, app.logger)
	if err != nil {
		return err
	}
	app.transports = set
	app.scanners = factory.CreateScanners(app.config, set, app.logger)

	app.logger.Info("Transports initialized",
		zap.Bool("wireless", set.Wireless != nil),
		zap.Bool("serial", set.Serial != nil),
		zap.Bool("wired", set.Wired != nil),
		zap.Bool("network", set.Network != nil),
		zap.Strings("scanners", app.scanners.ScannerTypes(model.ScanModeAll)),
	)
	return nil
}

// initializeServices creates the event bus, connection manager and printer service
func (app *Application) initializeServices() {
	app.eventBus = handler.NewEventBus(app.logger)

	app.manager = connection.NewManager(app.transports, app.scanners, app.eventBus, connection.Options{
		ConnectTimeout: app.config.Bluetooth.ConnectTimeout,
		GrantTimeout:   app.config.USB.GrantTimeout,
		AutoGrant:      app.config.USB.AutoGrant,
	}, app.logger)

	fetcher := ticket.NewHTTPFetcher(app.config.Image.FetchTimeout, app.config.Image.MaxBytes)
	app.printerService = service.NewPrinterService(app.manager, fetcher, app.config, app.logger)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	router, wsHandler := routes.NewRouter(app.config, app.logger, app.printerService, app.eventBus).SetupRouter()
	app.wsHandler = wsHandler

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized", zap.String("address", app.config.GetServerAddr()))
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown stops the server and releases the printer. Errors are logged, never returned.
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "printer-bridge")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.manager.StopScan()
	app.manager.Disconnect()
	app.logger.Info("Printer released")

	app.eventBus.Close()

	app.logger.Info("Application shutdown completed")
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	go app.eventBus.Start()
	go app.wsHandler.Run()

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()
	return nil
}
