// cmd/seed loads the fixture listings into the database. It takes no flags;
// set SEED_FILE, SEED_DRY_RUN and SEED_DELAY to change what it does.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/database"
	"github.com/Shivanand-hulikatti/spotlight/internal/logger"
	"github.com/Shivanand-hulikatti/spotlight/internal/repository"
	"github.com/Shivanand-hulikatti/spotlight/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := seed.Load(cfg.Seed.File)
	if err != nil {
		log.WithError(err).Fatal("load fixtures")
	}
	log.WithField("count", len(records)).Info("fixtures loaded")

	var store seed.Store
	if !cfg.Seed.DryRun {
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.WithError(err).Fatal("database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		store = repository.NewEventRepository(pool)
	} else {
		log.Info("dry run, nothing will be inserted")
	}

	sum, err := seed.New(store, cfg.Seed, log).Run(ctx, records)
	log.WithFields(logrus.Fields{
		"inserted": sum.Inserted,
		"skipped":  sum.Skipped,
		"failed":   sum.Failed,
		"total":    sum.Total,
	}).Info("seed summary")
	if err != nil {
		log.WithError(err).Error("seed interrupted")
		stop()
		os.Exit(1)
	}

	switch {
	case cfg.Seed.DryRun:
	case sum.Inserted > 0:
		log.Info("seed completed")
	case sum.Skipped == sum.Total:
		log.Info("all events already exist")
	default:
		log.Warn("seed completed with failures")
	}
}
