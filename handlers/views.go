package handlers

import (
	"context"

	"bitbucket.org/mmdatafocus/tradebooks_backend/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

// List responses carry party and item names resolved through the request's batched loaders.

type saleView struct {
	*models.Sale
	CustomerName string `json:"customer_name"`
	ItemName     string `json:"item_name"`
}

type entryView struct {
	*models.OutwardEntry
	CustomerName string `json:"customer_name"`
	ItemName     string `json:"item_name"`
}

type customerDocView[T any] struct {
	Document     *T     `json:"document"`
	CustomerName string `json:"customer_name"`
}

type supplierDocView[T any] struct {
	Document     *T     `json:"document"`
	SupplierName string `json:"supplier_name"`
}

func customerName(ctx context.Context, id int) (string, error) {
	if id == 0 {
		return "", nil
	}
	c, err := middlewares.GetCustomer(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

func supplierName(ctx context.Context, id int) (string, error) {
	if id == 0 {
		return "", nil
	}
	s, err := middlewares.GetSupplier(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

func itemName(ctx context.Context, id int) (string, error) {
	if id == 0 {
		return "", nil
	}
	i, err := middlewares.GetItem(ctx, id)
	if err != nil {
		return "", err
	}
	return i.Name, nil
}

// primeLoaders queues every id first so each loader issues one batched query.
func primeLoaders(ctx context.Context, customerIds, supplierIds, itemIds []int) {
	if len(customerIds) > 0 {
		middlewares.GetCustomers(ctx, customerIds)
	}
	if len(supplierIds) > 0 {
		middlewares.GetSuppliers(ctx, supplierIds)
	}
	if len(itemIds) > 0 {
		middlewares.GetItems(ctx, itemIds)
	}
}

func saleViews(ctx context.Context, sales []*models.Sale) ([]*saleView, error) {
	customerIds := make([]int, 0, len(sales))
	itemIds := make([]int, 0, len(sales))
	for _, s := range sales {
		customerIds = append(customerIds, s.CustomerId)
		itemIds = append(itemIds, s.ItemId)
	}
	primeLoaders(ctx, customerIds, nil, itemIds)

	views := make([]*saleView, 0, len(sales))
	for _, s := range sales {
		view := &saleView{Sale: s}
		var err error
		if view.CustomerName, err = customerName(ctx, s.CustomerId); err != nil {
			return nil, err
		}
		if view.ItemName, err = itemName(ctx, s.ItemId); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func entryViews(ctx context.Context, entries []*models.OutwardEntry) ([]*entryView, error) {
	var customerIds, itemIds []int
	for _, e := range entries {
		if e.CustomerId != nil {
			customerIds = append(customerIds, *e.CustomerId)
		}
		if e.ItemId != nil {
			itemIds = append(itemIds, *e.ItemId)
		}
	}
	primeLoaders(ctx, customerIds, nil, itemIds)

	views := make([]*entryView, 0, len(entries))
	for _, e := range entries {
		view := &entryView{OutwardEntry: e}
		var err error
		if e.CustomerId != nil {
			if view.CustomerName, err = customerName(ctx, *e.CustomerId); err != nil {
				return nil, err
			}
		}
		if e.ItemId != nil {
			if view.ItemName, err = itemName(ctx, *e.ItemId); err != nil {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func customerDocViews[T any](ctx context.Context, docs []*T, customerOf func(*T) int) ([]*customerDocView[T], error) {
	ids := make([]int, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, customerOf(d))
	}
	primeLoaders(ctx, ids, nil, nil)

	views := make([]*customerDocView[T], 0, len(docs))
	for _, d := range docs {
		name, err := customerName(ctx, customerOf(d))
		if err != nil {
			return nil, err
		}
		views = append(views, &customerDocView[T]{Document: d, CustomerName: name})
	}
	return views, nil
}

func supplierDocViews[T any](ctx context.Context, docs []*T, supplierOf func(*T) int) ([]*supplierDocView[T], error) {
	ids := make([]int, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, supplierOf(d))
	}
	primeLoaders(ctx, nil, ids, nil)

	views := make([]*supplierDocView[T], 0, len(docs))
	for _, d := range docs {
		name, err := supplierName(ctx, supplierOf(d))
		if err != nil {
			return nil, err
		}
		views = append(views, &supplierDocView[T]{Document: d, SupplierName: name})
	}
	return views, nil
}
