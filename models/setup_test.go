package models_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// setupDB points the package at a fresh sqlite file and returns an admin context.
func setupDB(t *testing.T) context.Context {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "books.db") + "?_busy_timeout=5000"
	conn, err := config.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	models.MigrateTable()
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	return utils.WithUser(context.Background(), 1, "admin", "Admin", string(models.UserRoleAdmin))
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func mustCustomer(t *testing.T, ctx context.Context, name string) *models.Customer {
	t.Helper()
	c, err := models.CreateCustomer(ctx, &models.NewParty{Name: name})
	if err != nil {
		t.Fatalf("CreateCustomer(%s): %v", name, err)
	}
	return c
}

func mustItem(t *testing.T, ctx context.Context, name string, gst string) *models.Item {
	t.Helper()
	it, err := models.CreateItem(ctx, &models.NewItem{Name: name, GstRate: dec(gst), HsnCode: "2517"})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", name, err)
	}
	return it
}

func mustCompletedEntry(t *testing.T, ctx context.Context, customerId, itemId int, empty, load string) *models.OutwardEntry {
	t.Helper()
	e, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{
		EntryDate:   day(2026, 1, 5),
		VehicleNo:   "tn 01 ab 1234",
		CustomerId:  &customerId,
		ItemId:      &itemId,
		EmptyWeight: dec(empty),
		LoadWeight:  decPtr(load),
	})
	if err != nil {
		t.Fatalf("CreateOutwardEntry: %v", err)
	}
	return e
}

func customerBalance(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	b, err := models.CurrentCustomerBalance(ctx, id)
	if err != nil {
		t.Fatalf("CurrentCustomerBalance: %v", err)
	}
	return b
}
