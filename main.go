package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/roomboard/config"
	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/monitor"
	"github.com/wfunc/roomboard/persistence"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/rpc"
	"github.com/wfunc/roomboard/server"
	"github.com/wfunc/roomboard/services"
	"github.com/wfunc/roomboard/source"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		defer db.Close()
		logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)
	}

	mon := monitor.NewMonitor(cfg.Metrics.Namespace)

	centers, seeded, err := loadCenters(db, cfg.Seed.Path)
	if err != nil {
		logger.Log.Fatalf("Failed to load centers: %v", err)
	}
	registry := room.NewRegistry(centers)
	registry.Machine().OnChange(mon.ObserveTransition)
	control := services.NewControlService(registry, db, mon)
	if seeded {
		// Persist the seed together with the generated center IDs.
		if err := control.SaveAll(); err != nil {
			logger.Log.Fatalf("Failed to save seed: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Realtime source feeding the projection, and the sink mirroring the registry into it.
	var (
		src  source.Source
		sink source.Sink
	)
	if cfg.Kafka.Enabled {
		kafkaCfg := source.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			CentersTopic: cfg.Kafka.CentersTopic,
			RoomsTopic:   cfg.Kafka.RoomsTopic,
			GroupID:      cfg.Kafka.GroupID,
		}
		kafkaSource := source.NewKafkaSource(kafkaCfg)
		kafkaSource.Start(ctx)
		defer kafkaSource.Close()
		publisher := source.NewKafkaPublisher(kafkaCfg)
		defer publisher.Close()
		src, sink = kafkaSource, publisher
		logger.Log.Infof("Kafka source on %v", cfg.Kafka.Brokers)
	} else {
		mem := source.NewMemorySource()
		src, sink = mem, mem
	}
	stopFeed := source.Feed(registry, sink)
	defer stopFeed()

	proj := projection.New(src, projection.WithObserver(mon))
	proj.Start()
	defer proj.Close()

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, control)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}

	dashboard := server.NewDashboardServer(cfg.Server.HTTPAddress, cfg.Server.Heartbeat, control, proj, mon, rpcServer)

	errs := make(chan error, 1)
	go func() {
		// Start Server
		logger.Log.Infof("Starting dashboard server on %s", cfg.Server.HTTPAddress)
		errs <- dashboard.Start()
	}()

	select {
	case err := <-errs:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutting down.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dashboard.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("Shutdown: %v", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		return persistence.NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("%w: %s", persistence.ErrUnsupportedDriver, cfg.Driver)
	}
}

// loadCenters prefers stored centers and falls back to the seed. seeded reports
// whether the seed was used.
func loadCenters(db persistence.Database, seedPath string) ([]room.Center, bool, error) {
	if db != nil {
		centers, err := db.LoadCenters()
		if err != nil {
			return nil, false, err
		}
		if len(centers) > 0 {
			return centers, false, nil
		}
	}
	centers, err := config.LoadSeed(seedPath)
	return centers, db != nil, err
}
