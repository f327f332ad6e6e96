package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func TestNetWeight(t *testing.T) {
	cases := []struct {
		empty, load string
		want        string
		err         error
	}{
		{"4500", "12500", "8000", nil},
		{"4500.5", "4501", "0.5", nil},
		{"4500", "4500", "", utils.ErrInvalidWeight},
		{"4500", "3000", "", utils.ErrInvalidWeight},
		{"0", "3000", "", utils.ErrEmptyWeightRequired},
	}
	for _, tc := range cases {
		got, err := models.NetWeight(dec(tc.empty), dec(tc.load))
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("NetWeight(%s, %s) err = %v, want %v", tc.empty, tc.load, err, tc.err)
			}
			continue
		}
		if err != nil || !got.Equal(dec(tc.want)) {
			t.Fatalf("NetWeight(%s, %s) = %s, %v; want %s", tc.empty, tc.load, got, err, tc.want)
		}
	}
}

func TestOutwardEntryTwoWeighments(t *testing.T) {
	ctx := setupDB(t)

	entry, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{
		EntryDate:   day(2026, 1, 5),
		VehicleNo:   " tn 01 ab 1234 ",
		EmptyWeight: dec("4500"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.SerialNo != "OW00001" {
		t.Fatalf("serial = %s, want OW00001", entry.SerialNo)
	}
	if entry.VehicleNo != "TN01AB1234" {
		t.Fatalf("vehicle = %s", entry.VehicleNo)
	}
	if *entry.IsCompleted || !entry.NetWeight.IsZero() {
		t.Fatalf("entry without load weight must be open")
	}

	if _, err := models.UpdateLoadWeight(ctx, entry.ID, dec("4000")); !errors.Is(err, utils.ErrInvalidWeight) {
		t.Fatalf("lighter load should fail, got %v", err)
	}

	done, err := models.UpdateLoadWeight(ctx, entry.ID, dec("12500"))
	if err != nil {
		t.Fatalf("load weight: %v", err)
	}
	if !*done.IsCompleted || !done.NetWeight.Equal(dec("8000")) {
		t.Fatalf("completed=%v net=%s", *done.IsCompleted, done.NetWeight)
	}

	second, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "KA05MN0001", EmptyWeight: dec("3000")})
	if err != nil {
		t.Fatalf("second entry: %v", err)
	}
	if second.SerialNo != "OW00002" {
		t.Fatalf("second serial = %s", second.SerialNo)
	}
}

func TestOutwardEntryValidation(t *testing.T) {
	ctx := setupDB(t)

	if _, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "TN01", EmptyWeight: dec("0")}); !errors.Is(err, utils.ErrEmptyWeightRequired) {
		t.Fatalf("zero empty weight: %v", err)
	}
	if _, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "  ", EmptyWeight: dec("10")}); !utils.IsValidationError(err) {
		t.Fatalf("blank vehicle: %v", err)
	}
	missing := 999
	if _, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "TN01", EmptyWeight: dec("10"), CustomerId: &missing}); !utils.IsValidationError(err) {
		t.Fatalf("unknown customer: %v", err)
	}
}

func TestUpdateOutwardEntryBilledKeepsWeights(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Kaveri Readymix")
	item := mustItem(t, ctx, "20mm Jelly", "5")
	entry := mustCompletedEntry(t, ctx, customer.ID, item.ID, "5000", "15000")

	input := &models.NewOutwardEntry{
		EntryDate:   day(2026, 1, 5),
		VehicleNo:   entry.VehicleNo,
		CustomerId:  &customer.ID,
		ItemId:      &item.ID,
		EmptyWeight: dec("5000"),
		LoadWeight:  decPtr("16000"),
	}
	// unbilled entries may still be reweighed
	updated, err := models.UpdateOutwardEntry(ctx, entry.ID, input)
	if err != nil {
		t.Fatalf("UpdateOutwardEntry: %v", err)
	}
	if !updated.NetWeight.Equal(dec("11000")) {
		t.Fatalf("net = %s, want 11000", updated.NetWeight)
	}

	if _, err := models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, OutwardEntryId: &entry.ID, Rate: dec("1")}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	input.LoadWeight = decPtr("17000")
	if _, err := models.UpdateOutwardEntry(ctx, entry.ID, input); !errors.Is(err, utils.ErrEntryAlreadyBilled) {
		t.Fatalf("reweigh billed entry: err = %v", err)
	}
	input.EmptyWeight = dec("4000")
	input.LoadWeight = decPtr("16000")
	if _, err := models.UpdateOutwardEntry(ctx, entry.ID, input); !errors.Is(err, utils.ErrEntryAlreadyBilled) {
		t.Fatalf("change empty weight of billed entry: err = %v", err)
	}

	// other fields stay editable
	input.EmptyWeight = dec("5000")
	input.Remarks = "gate pass 118"
	kept, err := models.UpdateOutwardEntry(ctx, entry.ID, input)
	if err != nil {
		t.Fatalf("edit remarks: %v", err)
	}
	if kept.Remarks != "gate pass 118" || !kept.NetWeight.Equal(dec("11000")) {
		t.Fatalf("entry = %+v", kept)
	}
}
