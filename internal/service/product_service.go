package service

import (
	"context"
	"fmt"
	"strings"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProductService interface {
	CreateProduct(ctx context.Context, principal model.Principal, req *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, principal model.Principal, id uuid.UUID, req *model.Product) (*model.Product, error)
	Restock(ctx context.Context, principal model.Principal, id uuid.UUID, quantity int, note string) (*model.Product, error)
	DeleteProduct(ctx context.Context, principal model.Principal, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	ledger      StockLedger
	reports     ReportInvalidator
	notifier    Notifier
}

func NewProductService(db *gorm.DB, pRepo repository.ProductRepository, ledger StockLedger, reports ReportInvalidator, notifier Notifier) ProductService {
	if reports == nil {
		reports = nopInvalidator{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &productService{
		db:          db,
		productRepo: pRepo,
		ledger:      ledger,
		reports:     reports,
		notifier:    notifier,
	}
}

func (s *productService) checkSKU(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return ErrSKUExists.with(func(e *Error) { e.Field = "sku" })
	}
	return nil
}

// CreateProduct stores a product. Opening stock goes through the ledger so
// it shows up as an IN movement.
func (s *productService) CreateProduct(ctx context.Context, principal model.Principal, req *model.Product) (*model.Product, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkSKU(ctx, req.SKU, uuid.Nil); err != nil {
		return nil, err
	}

	opening := req.Stock
	req.ID = uuid.Nil
	req.Stock = 0
	req.CreatedBy = principal.AuditName()
	req.UpdatedBy = principal.AuditName()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if opening > 0 {
			return s.ledger.CreditTx(tx, principal, req.ID, opening, "opening stock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	req.Stock = opening

	logrus.WithFields(logrus.Fields{
		"product_id": req.ID,
		"sku":        req.SKU,
		"stock":      opening,
		"by":         principal.AuditName(),
	}).Info("product created")

	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventProductChanged, map[string]interface{}{
		"action":  "product_created",
		"product": productPayload(req),
		"user":    actor(principal),
		"message": fmt.Sprintf("%s created product '%s'", principal.Name, req.Name),
	})
	return req, nil
}

// UpdateProduct edits the descriptive fields. A higher stock value is
// applied as a ledger credit; lowering stock is refused because only sales
// debit it.
func (s *productService) UpdateProduct(ctx context.Context, principal model.Principal, id uuid.UUID, req *model.Product) (*model.Product, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkSKU(ctx, req.SKU, id); err != nil {
		return nil, err
	}

	req.ID = id
	req.UpdatedBy = principal.AuditName()
	var oldStock int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.productRepo.LockByID(tx, id)
		if err != nil {
			if isNotFound(err) {
				return productNotFound(id)
			}
			return err
		}
		oldStock = existing.Stock
		if req.Stock < existing.Stock {
			return ErrStockDecrease.with(func(e *Error) {
				e.ProductID = id
				e.Field = "stock"
			})
		}
		if err := s.productRepo.UpdateDetails(tx, req); err != nil {
			if isNotFound(err) {
				return productNotFound(id)
			}
			return err
		}
		if diff := req.Stock - existing.Stock; diff > 0 {
			return s.ledger.CreditTx(tx, principal, id, diff, "stock edit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": id,
		"old_stock":  oldStock,
		"new_stock":  updated.Stock,
		"by":         principal.AuditName(),
	}).Info("product updated")

	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventProductChanged, map[string]interface{}{
		"action":    "product_updated",
		"product":   productPayload(updated),
		"old_stock": oldStock,
		"user":      actor(principal),
		"message":   fmt.Sprintf("%s updated product '%s'", principal.Name, updated.Name),
	})
	return updated, nil
}

func (s *productService) Restock(ctx context.Context, principal model.Principal, id uuid.UUID, quantity int, note string) (*model.Product, error) {
	return s.ledger.Credit(ctx, principal, id, quantity, note)
}

// DeleteProduct soft deletes a product that no sale references.
func (s *productService) DeleteProduct(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	refs, err := s.productRepo.CountSaleReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrProductInUse.with(func(e *Error) {
			e.ProductID = id
			e.Message = fmt.Sprintf("product is referenced by %d sale line(s)", refs)
		})
	}
	if err := s.productRepo.Delete(ctx, id, principal.AuditName()); err != nil {
		if isNotFound(err) {
			return productNotFound(id)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{"product_id": id, "by": principal.AuditName()}).Info("product deleted")
	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventProductChanged, map[string]interface{}{
		"action":     "product_deleted",
		"product_id": id,
		"user":       actor(principal),
	})
	return nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, productNotFound(id)
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx, filter)
}

func productPayload(p *model.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":    p.ID,
		"sku":   p.SKU,
		"name":  p.Name,
		"stock": p.Stock,
		"price": p.Price,
	}
}
