package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/auction-backend/internal/adapter/grpc"
	"github.com/simaogato/auction-backend/internal/adapter/repository/memory"
	"github.com/simaogato/auction-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/auction-backend/internal/config"
	"github.com/simaogato/auction-backend/internal/domain"
	"github.com/simaogato/auction-backend/internal/usecase/catalog"
	"github.com/simaogato/auction-backend/internal/usecase/seeder"
	"github.com/simaogato/auction-backend/internal/usecase/settlement"
	"github.com/simaogato/auction-backend/internal/usecase/summary"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.LagerLevel()
	logger := lager.NewLogger("auction")
	logger.RegisterSink(lager.NewWriterSink(os.Stdout, level))

	// 2. Setup the entity store
	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed-to-open-store", err, lager.Data{"driver": cfg.StoreDriver})
	}
	defer closeStore()

	// 3. Initialize Services (Use Cases)
	rules := cfg.Rules()
	settlementService := settlement.NewSettlementService(store, rules, clock.NewClock(), logger)
	catalogService := catalog.NewCatalogService(store.Items(), store.Bidders(), rules, logger)
	summaryService := summary.NewSummaryService(store.Items(), store.Bidders(), store.Ledger(), rules)

	// Make sure the configured bidders exist
	bidderSeeder := seeder.NewBidderSeeder(store.Bidders(), rules, logger)
	if err := bidderSeeder.Seed(ctx, cfg.SeedBidders); err != nil {
		logger.Fatal("failed-to-seed-bidders", err)
	}

	// 4. Start gRPC Server with logging and auth interceptors
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterAuctionServer(grpcServer, grpcadapter.NewServer(settlementService, catalogService, summaryService, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed-to-listen", err, lager.Data{"addr": cfg.GRPCAddr})
	}

	// Start server in a goroutine
	go func() {
		logger.Info("grpc-server-listening", lager.Data{"addr": cfg.GRPCAddr, "driver": cfg.StoreDriver})
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("failed-to-serve", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, logger)
}

// openStore builds the entity store selected by STORE_DRIVER
func openStore(ctx context.Context, cfg config.Config, logger lager.Logger) (domain.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		// Simple retry while Postgres comes up
		var db *sqlstore.DB
		var err error
		for attempt := 1; attempt <= 5; attempt++ {
			db, err = sqlstore.OpenPostgres(ctx, cfg.PostgresConnString())
			if err == nil {
				break
			}
			logger.Info("waiting-for-database", lager.Data{"attempt": attempt, "error": err.Error()})
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewStore(db), func() { _ = db.Close() }, nil
	case config.DriverSQLite:
		db, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewStore(db), func() { _ = db.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger lager.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting-down", lager.Data{"signal": sig.String()})

	grpcServer.GracefulStop()
	logger.Info("grpc-server-stopped")
}
