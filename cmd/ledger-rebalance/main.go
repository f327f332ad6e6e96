// ledger-rebalance recomputes the running balance of every customer, supplier and stock ledger row.
// Run it after restoring data or when /api/reports/ledger-check reports drift.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/workflow"
)

func main() {
	checkOnly := flag.Bool("check", false, "only report drift, do not rewrite balances")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()
	ctx := context.Background()

	before, err := models.CheckLedgerConsistency(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger check failed: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"report": before}).Info("ledger check before rebalance")
	if *checkOnly {
		return
	}

	var parties int
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := workflow.AcquireMaintenanceLock(tx, "ledger-rebalance"); err != nil {
			return err
		}
		defer workflow.ReleaseMaintenanceLock(tx, "ledger-rebalance")
		var err error
		parties, err = models.RebalanceAll(tx)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebalance failed: %v\n", err)
		os.Exit(1)
	}

	after, err := models.CheckLedgerConsistency(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger check failed: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"parties": parties, "report": after}).Info("ledger rebalance done")
}
