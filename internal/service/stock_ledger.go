package service

import (
	"context"
	"fmt"
	"sort"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reservation asks the ledger for quantity units of one product.
type Reservation struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockLedger is the only writer of products.stock.
type StockLedger interface {
	// Reserve debits every reservation inside tx. The caller owns tx, so a
	// failure rolls back the debits already applied.
	Reserve(tx *gorm.DB, principal model.Principal, saleID *uuid.UUID, reservations []Reservation) error
	// CreditTx adds stock inside the caller's transaction.
	CreditTx(tx *gorm.DB, principal model.Principal, productID uuid.UUID, quantity int, note string) error
	Credit(ctx context.Context, principal model.Principal, productID uuid.UUID, quantity int, note string) (*model.Product, error)
}

type stockLedger struct {
	db           *gorm.DB
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	reports      ReportInvalidator
	notifier     Notifier
}

func NewStockLedger(db *gorm.DB, pRepo repository.ProductRepository, mRepo repository.StockMovementRepository, reports ReportInvalidator, notifier Notifier) StockLedger {
	if reports == nil {
		reports = nopInvalidator{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &stockLedger{
		db:           db,
		productRepo:  pRepo,
		movementRepo: mRepo,
		reports:      reports,
		notifier:     notifier,
	}
}

// mergeReservations sums quantities per product and orders them by id, so
// concurrent sales always take row locks in the same order.
func mergeReservations(reservations []Reservation) ([]Reservation, error) {
	totals := map[uuid.UUID]int{}
	for i, r := range reservations {
		if r.Quantity <= 0 {
			return nil, invalidQuantity(fmt.Sprintf("lineItems[%d].quantity", i))
		}
		totals[r.ProductID] += r.Quantity
	}
	merged := make([]Reservation, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Reservation{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func (l *stockLedger) Reserve(tx *gorm.DB, principal model.Principal, saleID *uuid.UUID, reservations []Reservation) error {
	if len(reservations) == 0 {
		return ErrEmptyCart
	}
	merged, err := mergeReservations(reservations)
	if err != nil {
		return err
	}

	for _, r := range merged {
		ok, err := l.productRepo.DecrementStock(tx, r.ProductID, r.Quantity, principal.AuditName())
		if err != nil {
			return err
		}
		if !ok {
			return l.reserveFailure(tx, r)
		}
		movement := &model.StockMovement{
			ProductID: r.ProductID,
			Type:      model.MovementOut,
			Quantity:  r.Quantity,
			SaleID:    saleID,
			Note:      "sale",
		}
		movement.CreatedBy = principal.AuditName()
		if err := l.movementRepo.Create(tx, movement); err != nil {
			return err
		}
	}
	return nil
}

// reserveFailure explains why a conditional decrement matched no row.
func (l *stockLedger) reserveFailure(tx *gorm.DB, r Reservation) error {
	products, err := l.productRepo.FindByIDs(tx, []uuid.UUID{r.ProductID})
	if err != nil {
		return err
	}
	p, ok := products[r.ProductID]
	if !ok {
		return productNotFound(r.ProductID)
	}
	return insufficientStock(p.ID, p.SKU, p.Stock, r.Quantity)
}

func (l *stockLedger) CreditTx(tx *gorm.DB, principal model.Principal, productID uuid.UUID, quantity int, note string) error {
	if quantity <= 0 {
		return invalidQuantity("quantity")
	}
	ok, err := l.productRepo.IncrementStock(tx, productID, quantity, principal.AuditName())
	if err != nil {
		return err
	}
	if !ok {
		return productNotFound(productID)
	}
	if note == "" {
		note = "restock"
	}
	movement := &model.StockMovement{
		ProductID: productID,
		Type:      model.MovementIn,
		Quantity:  quantity,
		Note:      note,
	}
	movement.CreatedBy = principal.AuditName()
	return l.movementRepo.Create(tx, movement)
}

func (l *stockLedger) Credit(ctx context.Context, principal model.Principal, productID uuid.UUID, quantity int, note string) (*model.Product, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.CreditTx(tx, principal, productID, quantity, note)
	})
	if err != nil {
		return nil, err
	}

	product, err := l.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"sku":        product.SKU,
		"quantity":   quantity,
		"stock":      product.Stock,
		"by":         principal.AuditName(),
	}).Info("stock credited")

	l.reports.Invalidate(ctx)
	l.notifier.Publish(EventStockUpdate, map[string]interface{}{
		"action":   "restock",
		"product":  map[string]interface{}{"id": product.ID, "sku": product.SKU, "name": product.Name, "stock": product.Stock},
		"quantity": quantity,
		"user":     actor(principal),
		"message":  fmt.Sprintf("%s restocked %d unit(s) of '%s'", principal.Name, quantity, product.Name),
	})
	return product, nil
}
