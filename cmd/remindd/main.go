package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kbediako/Ambient-Email-Agent/internal/build"
	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
	"github.com/Kbediako/Ambient-Email-Agent/internal/reminder"
	"github.com/Kbediako/Ambient-Email-Agent/internal/worker"
)

func main() {
	var (
		dbPath = flag.String("db", "~/.ambient-email-agent/reminders.db",
			"Path to SQLite database")
		logDir = flag.String("logdir", "",
			"Directory for rotating log files (empty for "+
				"console only)")
		schedule = flag.String("schedule", worker.DefaultSchedule,
			"Cron schedule for the reminder delivery cycle")
		debug = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	// Expand home directory.
	dbPathExpanded := os.ExpandEnv(*dbPath)
	if dbPathExpanded == *dbPath && (*dbPath)[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		dbPathExpanded = home + (*dbPath)[1:]
	}

	logger, closeLogs, err := build.NewLogger(*logDir, *debug)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogs()

	// Open the database with migrations.
	sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: dbPathExpanded,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqliteStore.Close()

	store := reminder.NewSQLStore(sqliteStore.Store, logger)
	deliverer := worker.NewLogDeliverer(logger)

	// Set up signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("Shutting down...")
		cancel()
	}()

	logger.Info("Starting reminder delivery worker",
		"version", build.Version(),
		"db", dbPathExpanded,
		"schedule", *schedule,
	)

	err = worker.Run(ctx, store, deliverer, logger, *schedule)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
		os.Exit(1)
	}
}
