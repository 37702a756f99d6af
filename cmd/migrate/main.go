package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/postboard/internal/config"
	"github.com/geocoder89/postboard/internal/db"
	"github.com/geocoder89/postboard/internal/observability"
)

// usage: migrate [up|down|status]
func main() {
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, 2)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, command); err != nil {
		log.Error("migration failed", "command", command, "err", err)
		stop()
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration complete", "command", command)
}
