package middlewares

import (
	"context"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the party and item lookups made while rendering list responses.
type Loaders struct {
	customerLoader *dataloader.Loader[int, *models.Customer]
	supplierLoader *dataloader.Loader[int, *models.Supplier]
	itemLoader     *dataloader.Loader[int, *models.Item]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	customerReader := &customerReader{db: conn}
	supplierReader := &supplierReader{db: conn}
	itemReader := &itemReader{db: conn}

	return &Loaders{
		customerLoader: dataloader.NewBatchedLoader(customerReader.getCustomers, dataloader.WithWait[int, *models.Customer](time.Millisecond)),
		supplierLoader: dataloader.NewBatchedLoader(supplierReader.getSuppliers, dataloader.WithWait[int, *models.Supplier](time.Millisecond)),
		itemLoader:     dataloader.NewBatchedLoader(itemReader.getItems, dataloader.WithWait[int, *models.Item](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithLoaders(c.Request.Context(), config.GetDB()))
		c.Next()
	}
}

// WithLoaders attaches a fresh set of loaders to ctx.
func WithLoaders(ctx context.Context, conn *gorm.DB) context.Context {
	return context.WithValue(ctx, loadersKey, NewLoaders(conn))
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results
// (T must be a struct)
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	resultMap := make(map[int]T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}
