// outbox-requeue moves DEAD ledger events back to PENDING and optionally drains the queue once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/workflow"
)

func main() {
	dispatch := flag.Bool("dispatch", false, "publish due events once after requeueing (needs PUBSUB_TOPIC)")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()
	ctx := context.Background()

	n, err := models.RequeueDeadEvents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "requeue failed: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"requeued": n}).Info("dead ledger events requeued")

	if !*dispatch {
		return
	}
	d := workflow.NewOutboxDispatcher(db, logger)
	total := 0
	for {
		sent, err := d.DispatchOnce(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dispatch failed: %v\n", err)
			os.Exit(1)
		}
		total += sent
		if sent == 0 {
			break
		}
	}
	logger.WithFields(logrus.Fields{"processed": total}).Info("outbox drained")
}
