// Command ledgerd runs the event-sourced account ledger with an HTTP API.
// Every deposit and withdrawal is appended to a durable per-account event
// log; balances are projections replayed from that log.
//
// Usage:
//
//	ledgerd --config config.yaml
//	ledgerd --setup          (interactive config wizard)
//	ledgerd                  (uses CLI arguments)
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/finwald/ledgerd/config"
	"github.com/finwald/ledgerd/internal/account"
	"github.com/finwald/ledgerd/internal/setup"
	"github.com/finwald/ledgerd/internal/storage/eventlog"
	"github.com/finwald/ledgerd/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, flags, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if flags.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.Load("config.gen.yaml")
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	store := eventlog.New(eventlog.Config{
		Dir:              cfg.DataDir,
		SegmentThreshold: cfg.SegmentThreshold,
		MaxSegments:      cfg.MaxSegments,
		NoSync:           cfg.NoSync,
	})
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close event log store", zap.Error(err))
		}
	}()

	engine := account.NewEngine(store, logger.Named("engine"))
	server := web.NewServer(cfg.HTTPAddr, engine, logger.Named("web"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting ledgerd",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("data_dir", cfg.DataDir))

	if err := server.Start(ctx); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}

	logger.Info("ledgerd stopped")
}
