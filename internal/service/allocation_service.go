package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ItemAllocation struct {
	ItemID      uuid.UUID `json:"itemId"`
	Identifiers []string  `json:"identifiers"`
}

// AllocationService binds unit serials to sold line items. Allocating a
// whole order and shipping it are one step.
type AllocationService interface {
	AllocateSerials(ctx context.Context, principal model.Principal, saleID uuid.UUID, allocations []ItemAllocation) (*model.Sale, error)
	OverrideSerials(ctx context.Context, principal model.Principal, saleID, itemID uuid.UUID, identifiers []string, reason string) (*model.Sale, error)
}

type allocationService struct {
	db       *gorm.DB
	saleRepo repository.SaleRepository
	reports  ReportInvalidator
	notifier Notifier
	now      func() time.Time
}

func NewAllocationService(db *gorm.DB, saleRepo repository.SaleRepository, reports ReportInvalidator, notifier Notifier) AllocationService {
	if reports == nil {
		reports = nopInvalidator{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &allocationService{
		db:       db,
		saleRepo: saleRepo,
		reports:  reports,
		notifier: notifier,
		now:      time.Now,
	}
}

// cleanSerials trims identifiers and checks them against the line quantity.
func cleanSerials(item *model.SaleLineItem, identifiers []string) ([]string, error) {
	if len(identifiers) != item.Quantity {
		return nil, itemError(ErrSerialCount, item.ID,
			fmt.Sprintf("%s needs %d identifier(s), got %d", item.SKU, item.Quantity, len(identifiers)))
	}
	out := make([]string, len(identifiers))
	for i, id := range identifiers {
		out[i] = strings.TrimSpace(id)
		if out[i] == "" {
			return nil, itemError(ErrBlankSerial, item.ID,
				fmt.Sprintf("identifier %d of %s is blank", i+1, item.SKU))
		}
	}
	return out, nil
}

// checkDuplicates rejects a serial used twice within one sale.
func checkDuplicates(items []model.SaleLineItem) error {
	seen := map[string]bool{}
	for _, item := range items {
		for _, serial := range item.Serials {
			key := strings.ToUpper(serial)
			if seen[key] {
				return itemError(ErrDuplicateSerial, item.ID,
					fmt.Sprintf("identifier %q is used more than once in the sale", serial))
			}
			seen[key] = true
		}
	}
	return nil
}

func (s *allocationService) AllocateSerials(ctx context.Context, principal model.Principal, saleID uuid.UUID, allocations []ItemAllocation) (*model.Sale, error) {
	var shipped *model.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, saleID)
		if err != nil {
			if isNotFound(err) {
				return ErrSaleNotFound
			}
			return err
		}
		if sale.IsOnline() && (sale.Status == model.StatusShipped || sale.Status == model.StatusDelivered) {
			return ErrSerialsImmutable
		}
		if !sale.IsOnline() || sale.Status != model.StatusProcessing {
			return invalidTransition(string(sale.Status), string(model.StatusShipped))
		}

		byItem := make(map[uuid.UUID][]string, len(allocations))
		for _, a := range allocations {
			if _, dup := byItem[a.ItemID]; dup {
				return itemError(ErrDuplicateSerial, a.ItemID, "line item allocated more than once")
			}
			byItem[a.ItemID] = a.Identifiers
		}

		known := make(map[uuid.UUID]bool, len(sale.LineItems))
		for i := range sale.LineItems {
			item := &sale.LineItems[i]
			known[item.ID] = true
			identifiers, ok := byItem[item.ID]
			if !ok {
				return itemError(ErrIncompleteAllocation, item.ID,
					fmt.Sprintf("line item %s (%s) has no allocation", item.ID, item.SKU))
			}
			serials, err := cleanSerials(item, identifiers)
			if err != nil {
				return err
			}
			item.Serials = serials
			item.AllocationState = model.AllocationShipped
			item.UpdatedBy = principal.AuditName()
		}
		for id := range byItem {
			if !known[id] {
				return itemError(ErrLineItemNotFound, id, "")
			}
		}
		if err := checkDuplicates(sale.LineItems); err != nil {
			return err
		}

		if err := s.saleRepo.SaveLineItems(tx, sale.LineItems); err != nil {
			return err
		}
		at := s.now()
		sale.Status = model.StatusShipped
		sale.ShippedAt = &at
		sale.UpdatedBy = principal.AuditName()
		if err := s.saleRepo.UpdateStatus(tx, sale); err != nil {
			return err
		}
		shipped = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": saleID,
		"items":   len(shipped.LineItems),
		"by":      principal.AuditName(),
	}).Info("serials allocated, sale shipped")

	s.reports.Invalidate(ctx)
	s.notifier.Publish(EventSaleUpdated, map[string]interface{}{
		"sale_id": saleID,
		"status":  shipped.Status,
		"user":    actor(principal),
	})
	return shipped, nil
}

// OverrideSerials replaces the serials of one shipped line and keeps the
// previous values in a SerialOverride row.
func (s *allocationService) OverrideSerials(ctx context.Context, principal model.Principal, saleID, itemID uuid.UUID, identifiers []string, reason string) (*model.Sale, error) {
	if err := authorize(principal, model.PrivSaleOverride); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationFailed("reason", "required")
	}

	var updated *model.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, saleID)
		if err != nil {
			if isNotFound(err) {
				return ErrSaleNotFound
			}
			return err
		}

		var item *model.SaleLineItem
		for i := range sale.LineItems {
			if sale.LineItems[i].ID == itemID {
				item = &sale.LineItems[i]
			}
		}
		if item == nil {
			return itemError(ErrLineItemNotFound, itemID, "")
		}
		if item.AllocationState != model.AllocationShipped {
			return itemError(ErrInvalidTransition, itemID, "only shipped lines can be overridden, allocate the order instead")
		}

		serials, err := cleanSerials(item, identifiers)
		if err != nil {
			return err
		}
		old := item.Serials
		item.Serials = serials
		item.UpdatedBy = principal.AuditName()
		if err := checkDuplicates(sale.LineItems); err != nil {
			return err
		}

		if err := s.saleRepo.SaveLineItems(tx, []model.SaleLineItem{*item}); err != nil {
			return err
		}
		override := &model.SerialOverride{
			SaleID:     sale.ID,
			LineItemID: item.ID,
			OldSerials: old,
			NewSerials: serials,
			Reason:     reason,
		}
		override.CreatedBy = principal.AuditName()
		if err := s.saleRepo.CreateOverride(tx, override); err != nil {
			return err
		}
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"sale_id": saleID,
		"item_id": itemID,
		"reason":  reason,
		"by":      principal.AuditName(),
	}).Warn("shipped serials overridden")

	s.notifier.Publish(EventSaleUpdated, map[string]interface{}{
		"sale_id": saleID,
		"item_id": itemID,
		"action":  "serials_overridden",
		"user":    actor(principal),
	})
	return updated, nil
}
