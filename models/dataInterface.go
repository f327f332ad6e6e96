package models

import (
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (c Customer) GetId() int {
	return c.ID
}

// GetDefault stands in for a customer id that no longer exists (deleted after the row was listed).
func (c Customer) GetDefault(id int) Data {
	return Customer{
		ID:             id,
		OpeningBalance: decimal.Zero,
		IsActive:       utils.NewFalse(),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func (i Item) GetId() int {
	return i.ID
}

func (i Item) GetDefault(id int) Data {
	return Item{
		ID:        id,
		Unit:      "KG",
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (s Supplier) GetId() int {
	return s.ID
}

func (s Supplier) GetDefault(id int) Data {
	return Supplier{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}
