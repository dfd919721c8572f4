package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/tradewatt/designer/internal/api_server"
	"github.com/tradewatt/designer/internal/config"
	"github.com/tradewatt/designer/internal/designer"
	"github.com/tradewatt/designer/internal/events"
	"github.com/tradewatt/designer/internal/service"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/worker"
	"github.com/tradewatt/designer/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the designer api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("designer_api").Info("Starting designer API service")
		defer zap.S().Named("designer_api").Info("Designer API service stopped")

		zap.S().Named("designer_api").Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Named("designer_api").Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Named("designer_api").Fatalf("running initial migration: %v", err)
		}

		producer := events.NewEventProducer(&events.StdoutWriter{})
		defer func() { _ = producer.Close() }()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Named("designer_api").Fatalf("creating listener: %s", err)
			}

			server := apiserver.New(cfg, s, producer, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Named("designer_api").Fatalf("Error running server: %s", err)
			}
		}()

		go func() {
			defer cancel()
			designSvc := service.NewDesignService(s, cfg.Cache.TTL, producer)
			w := worker.New(s, designer.NewEngine(), designSvc, cfg.Worker.PollInterval, cfg.Worker.StepDelay)
			w.Run(ctx)
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
