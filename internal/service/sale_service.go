package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/pkg/money"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LineItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"uuid_required"`
	Quantity  int       `json:"quantity"`
}

type CustomerInfo struct {
	Name    string `json:"name" validate:"max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address"`
}

type RecordSaleRequest struct {
	Channel       model.Channel     `json:"channel"`
	LineItems     []LineItemRequest `json:"lineItems" validate:"dive"`
	CustomerInfo  CustomerInfo      `json:"customerInfo"`
	PaymentMethod string            `json:"paymentMethod" validate:"max=30"`
	Note          string            `json:"note"`
}

// ListSalesQuery is the explicit filter for sale listings. Active selects
// the open online orders (Processing and Shipped).
type ListSalesQuery struct {
	Status        model.SaleStatus
	Channel       model.Channel
	Active        bool
	From          *time.Time
	To            *time.Time
	CustomerEmail string
	Limit         int
}

type SaleService interface {
	RecordSale(ctx context.Context, principal model.Principal, req RecordSaleRequest) (*model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, q ListSalesQuery) ([]model.Sale, error)
	TrackOrders(ctx context.Context, email string) ([]model.Sale, error)
	UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.SaleStatus) (*model.Sale, error)
	DeleteSale(ctx context.Context, principal model.Principal, id uuid.UUID) error
}

type saleService struct {
	db           *gorm.DB
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	ledger       StockLedger
	tax          *money.TaxCalculator
	reports      ReportInvalidator
	notifier     Notifier
	now          func() time.Time
}

func NewSaleService(
	db *gorm.DB,
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	ledger StockLedger,
	tax *money.TaxCalculator,
	reports ReportInvalidator,
	notifier Notifier,
) SaleService {
	if reports == nil {
		reports = nopInvalidator{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &saleService{
		db:           db,
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		ledger:       ledger,
		tax:          tax,
		reports:      reports,
		notifier:     notifier,
		now:          time.Now,
	}
}

func (s *saleService) checkRequest(req *RecordSaleRequest) error {
	if len(req.LineItems) == 0 {
		return ErrEmptyCart
	}
	for i, item := range req.LineItems {
		if item.Quantity <= 0 {
			return invalidQuantity(fmt.Sprintf("lineItems[%d].quantity", i))
		}
	}
	if !req.Channel.Valid() {
		return ErrInvalidChannel.with(func(e *Error) {
			e.Field = "channel"
			e.Message = fmt.Sprintf("unknown sales channel %q", req.Channel)
		})
	}
	if err := validate(req); err != nil {
		return err
	}

	info := &req.CustomerInfo
	info.Name = strings.TrimSpace(info.Name)
	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)
	if req.Channel.IsOnline() {
		if info.Email == "" {
			return validationFailed("customerInfo.email", "required")
		}
		if strings.TrimSpace(info.Address) == "" {
			return validationFailed("customerInfo.address", "required")
		}
	}
	if info.Name == "" {
		return validationFailed("customerInfo.name", "required")
	}
	return nil
}

func (s *saleService) RecordSale(ctx context.Context, principal model.Principal, req RecordSaleRequest) (*model.Sale, error) {
	if err := s.checkRequest(&req); err != nil {
		return nil, err
	}

	sale := &model.Sale{
		Channel:         req.Channel,
		Status:          model.StatusCompleted,
		CustomerName:    req.CustomerInfo.Name,
		CustomerEmail:   req.CustomerInfo.Email,
		CustomerPhone:   req.CustomerInfo.Phone,
		ShippingAddress: req.CustomerInfo.Address,
		PaymentMethod:   req.PaymentMethod,
		Note:            req.Note,
	}
	if sale.IsOnline() {
		sale.Status = model.StatusProcessing
	}
	sale.ID = uuid.New()
	sale.CreatedBy = principal.AuditName()
	sale.UpdatedBy = principal.AuditName()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, len(req.LineItems))
		for i, item := range req.LineItems {
			ids[i] = item.ProductID
		}
		products, err := s.productRepo.FindByIDs(tx, ids)
		if err != nil {
			return err
		}

		reservations := make([]Reservation, len(req.LineItems))
		for i, item := range req.LineItems {
			product, ok := products[item.ProductID]
			if !ok {
				return productNotFound(item.ProductID)
			}
			lineTotal, err := money.LineTotal(product.Price, item.Quantity)
			if err != nil {
				return invalidQuantity(fmt.Sprintf("lineItems[%d].quantity", i))
			}
			sale.LineItems = append(sale.LineItems, model.SaleLineItem{
				ProductID:       product.ID,
				SKU:             product.SKU,
				Name:            product.Name,
				Category:        product.Category,
				UnitPrice:       product.Price,
				Quantity:        item.Quantity,
				LineTotal:       lineTotal,
				Serials:         make([]string, item.Quantity),
				AllocationState: model.AllocationUnallocated,
			})
			sale.Subtotal += lineTotal
			reservations[i] = Reservation{ProductID: product.ID, Quantity: item.Quantity}
		}
		sale.TaxAmount, sale.TotalAmount = s.tax.Totals(sale.Subtotal)
		for i := range sale.LineItems {
			sale.LineItems[i].CreatedBy = sale.CreatedBy
			sale.LineItems[i].UpdatedBy = sale.UpdatedBy
		}

		if err := s.ledger.Reserve(tx, principal, &sale.ID, reservations); err != nil {
			return err
		}

		if !sale.IsOnline() {
			customer, err := s.findOrCreateCustomer(tx, principal, req.CustomerInfo)
			if err != nil {
				return err
			}
			sale.CustomerID = &customer.ID
			if err := s.customerRepo.AddToTotal(tx, customer.ID, sale.TotalAmount); err != nil {
				return err
			}
		}

		return s.saleRepo.Create(tx, sale)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"channel": req.Channel,
			"items":   len(req.LineItems),
			"by":      principal.AuditName(),
		}).Warn("sale rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": sale.ID,
		"channel": sale.Channel,
		"total":   sale.TotalAmount,
		"by":      principal.AuditName(),
	}).Info("sale recorded")

	s.reports.Invalidate(ctx)
	s.publishRecorded(principal, sale)
	return sale, nil
}

// findOrCreateCustomer resolves the offline buyer by the same contact
// priority used for de-duplication.
func (s *saleService) findOrCreateCustomer(tx *gorm.DB, principal model.Principal, info CustomerInfo) (*model.OfflineCustomer, error) {
	customer, err := s.customerRepo.FindByContact(tx, info.Email, info.Phone, info.Name)
	if err == nil {
		return customer, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	customer = &model.OfflineCustomer{
		Name:    strings.TrimSpace(info.Name),
		Email:   strings.TrimSpace(info.Email),
		Phone:   strings.TrimSpace(info.Phone),
		Address: info.Address,
	}
	customer.CreatedBy = principal.AuditName()
	customer.UpdatedBy = principal.AuditName()
	return s.customerRepo.FindOrCreate(tx, customer)
}

func (s *saleService) publishRecorded(principal model.Principal, sale *model.Sale) {
	items := make([]map[string]interface{}, len(sale.LineItems))
	for i, item := range sale.LineItems {
		items[i] = map[string]interface{}{
			"product_id": item.ProductID,
			"sku":        item.SKU,
			"quantity":   item.Quantity,
		}
	}
	s.notifier.Publish(EventSaleRecorded, map[string]interface{}{
		"sale_id": sale.ID,
		"channel": sale.Channel,
		"status":  sale.Status,
		"total":   sale.TotalAmount,
		"user":    actor(principal),
	})
	s.notifier.Publish(EventStockUpdate, map[string]interface{}{
		"action":  "sale",
		"sale_id": sale.ID,
		"items":   items,
	})
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, q ListSalesQuery) ([]model.Sale, error) {
	filter := repository.SaleFilter{
		From:          q.From,
		To:            q.To,
		CustomerEmail: q.CustomerEmail,
		Limit:         q.Limit,
	}
	if q.Active {
		filter.Statuses = []model.SaleStatus{model.StatusProcessing, model.StatusShipped}
		filter.Channels = []model.Channel{model.ChannelOnline}
	}
	if q.Status != "" {
		filter.Statuses = []model.SaleStatus{q.Status}
	}
	if q.Channel != "" {
		if !q.Channel.Valid() {
			return nil, ErrInvalidChannel
		}
		filter.Channels = []model.Channel{q.Channel}
	}
	return s.saleRepo.FindAll(ctx, filter)
}

// TrackOrders returns the online orders placed with an email address.
func (s *saleService) TrackOrders(ctx context.Context, email string) ([]model.Sale, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationFailed("email", "required")
	}
	return s.saleRepo.FindAll(ctx, repository.SaleFilter{
		Channels:      []model.Channel{model.ChannelOnline},
		CustomerEmail: email,
	})
}

// statusTransitions lists the moves UpdateStatus accepts. Processing to
// Shipped happens only through serial allocation.
var statusTransitions = map[model.SaleStatus][]model.SaleStatus{
	model.StatusProcessing: {model.StatusCancelled},
	model.StatusShipped:    {model.StatusDelivered},
}

func canTransition(from, to model.SaleStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *saleService) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.SaleStatus) (*model.Sale, error) {
	var updated *model.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrSaleNotFound
			}
			return err
		}
		if !sale.IsOnline() {
			return invalidTransition(string(sale.Status), string(status))
		}
		if sale.Status == model.StatusProcessing && status == model.StatusShipped {
			return ErrIncompleteAllocation.with(func(e *Error) {
				e.Message = "allocate serials to ship an order"
			})
		}
		if !canTransition(sale.Status, status) {
			return invalidTransition(string(sale.Status), string(status))
		}

		sale.Status = status
		if status == model.StatusDelivered {
			at := s.now()
			sale.DeliveredAt = &at
		}
		sale.UpdatedBy = principal.AuditName()
		if err := s.saleRepo.UpdateStatus(tx, sale); err != nil {
			return err
		}
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": id,
		"status":  status,
		"by":      principal.AuditName(),
	}).Info("sale status updated")

	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventSaleUpdated, map[string]interface{}{
		"sale_id": id,
		"status":  status,
		"user":    actor(principal),
	})
	return updated, nil
}

// DeleteSale is the admin override that removes a sale. Stock is not
// credited back; restocking stays an explicit ledger credit.
func (s *saleService) DeleteSale(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := authorize(principal, model.PrivSaleDelete); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrSaleNotFound
			}
			return err
		}
		if err := s.saleRepo.Delete(tx, id, principal.AuditName()); err != nil {
			return err
		}
		if sale.CustomerID != nil {
			if err := s.customerRepo.AddToTotal(tx, *sale.CustomerID, -sale.TotalAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": id,
		"by":      principal.AuditName(),
	}).Warn("sale deleted")

	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventSaleUpdated, map[string]interface{}{
		"sale_id": id,
		"action":  "deleted",
		"user":    actor(principal),
	})
	return nil
}
