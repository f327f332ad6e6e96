package models

import (
	"context"
	"log"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&CompanySettings{},
		&Customer{}, &CustomerLedger{},
		&DocumentSequence{},
		&CreditNote{}, &DebitNote{},
		&History{},
		&IdempotencyKey{}, &Item{},
		&LedgerEvent{},
		&OutwardEntry{},
		&Purchase{},
		&Receipt{},
		&Sale{}, &StockLedger{}, &Supplier{}, &SupplierLedger{}, &SupplierPayment{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := SeedDocumentSequences(context.Background()); err != nil {
		log.Fatal(err)
	}
}
