package main

import (
	"context"
	"flag"

	"refurb-store-api/internal/config"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/service"
	"refurb-store-api/pkg/database"

	"github.com/sirupsen/logrus"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report drifted customer totals without fixing them")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	// 3. Recompute totals
	corrections, err := service.ReconcileCustomerTotals(context.Background(), db, repository.NewCustomerRepo(db), *dryRun)
	if err != nil {
		logrus.WithError(err).Fatal("reconcile failed")
	}

	for _, c := range corrections {
		logrus.WithFields(logrus.Fields{
			"customer_id": c.CustomerID,
			"name":        c.Name,
			"stored":      c.Stored,
			"computed":    c.Computed,
		}).Warn("customer total drift")
	}
	logrus.WithFields(logrus.Fields{"drifted": len(corrections), "dry_run": *dryRun}).Info("reconcile finished")
}
