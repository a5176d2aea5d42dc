package service

import (
	"context"
	"sync"
	"testing"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/testutil"
	"refurb-store-api/pkg/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

type fixture struct {
	db          *gorm.DB
	products    repository.ProductRepository
	sales       repository.SaleRepository
	customers   repository.CustomerRepository
	movements   repository.StockMovementRepository
	events      *recorder
	invalidated *countingInvalidator
	ledger      StockLedger
	saleSvc     SaleService
	allocSvc    AllocationService
	productSvc  ProductService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	tax, err := money.NewTaxCalculator("18")
	require.NoError(t, err)

	f := &fixture{
		db:          db,
		products:    repository.NewProductRepo(db),
		sales:       repository.NewSaleRepo(db),
		customers:   repository.NewCustomerRepo(db),
		movements:   repository.NewStockMovementRepo(db),
		events:      &recorder{},
		invalidated: &countingInvalidator{},
	}
	f.ledger = NewStockLedger(db, f.products, f.movements, f.invalidated, f.events)
	f.saleSvc = NewSaleService(db, f.sales, f.products, f.customers, f.ledger, tax, f.invalidated, f.events)
	f.allocSvc = NewAllocationService(db, f.sales, f.invalidated, f.events)
	f.productSvc = NewProductService(db, f.products, f.ledger, f.invalidated, f.events)
	return f
}

var admin = model.Principal{
	UserID:   uuid.MustParse("00000000-0000-0000-0000-00000000a001"),
	Name:     "Asha",
	Email:    "asha@store.test",
	RoleCode: model.RoleMasterAdmin,
	Privileges: []string{
		model.PrivProductManage, model.PrivProductDelete, model.PrivStockRestock,
		model.PrivSaleCreate, model.PrivSaleStatus, model.PrivSaleAllocate,
		model.PrivSaleOverride, model.PrivSaleDelete,
	},
}

var clerk = model.Principal{
	UserID:     uuid.MustParse("00000000-0000-0000-0000-00000000c001"),
	Name:       "Ravi",
	RoleCode:   "STAFF",
	Privileges: []string{model.PrivSaleCreate},
}

// seedProduct inserts a product with stock already on hand.
func (f *fixture) seedProduct(t *testing.T, sku string, price int64, stock int) model.Product {
	t.Helper()
	p := model.Product{SKU: sku, Name: "Item " + sku, Category: "Phones", Grade: model.GradeA, Price: price}
	require.NoError(t, f.products.Create(context.Background(), &p))
	if stock > 0 {
		require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("stock", stock).Error)
		p.Stock = stock
	}
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) movementCount(t *testing.T, id uuid.UUID, kind model.MovementType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.StockMovement{}).Where("product_id = ? AND type = ?", id, kind).Count(&n).Error)
	return n
}

func onlineOrder(email string, items ...LineItemRequest) RecordSaleRequest {
	return RecordSaleRequest{
		Channel:   model.ChannelOnline,
		LineItems: items,
		CustomerInfo: CustomerInfo{
			Name:    "Meera",
			Email:   email,
			Phone:   "9876543210",
			Address: "12 MG Road, Bengaluru",
		},
		PaymentMethod: "UPI",
	}
}

func offlineSale(name, email string, items ...LineItemRequest) RecordSaleRequest {
	return RecordSaleRequest{
		Channel:       model.ChannelOffline,
		LineItems:     items,
		CustomerInfo:  CustomerInfo{Name: name, Email: email},
		PaymentMethod: "Cash",
	}
}

func item(p model.Product, qty int) LineItemRequest {
	return LineItemRequest{ProductID: p.ID, Quantity: qty}
}
