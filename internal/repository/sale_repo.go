package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleFilter is the explicit query contract for sale listings.
type SaleFilter struct {
	Statuses      []model.SaleStatus
	Channels      []model.Channel
	From          *time.Time
	To            *time.Time
	CustomerEmail string
	CustomerID    *uuid.UUID
	Limit         int
}

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error)
	UpdateStatus(tx *gorm.DB, sale *model.Sale) error
	SaveLineItems(tx *gorm.DB, items []model.SaleLineItem) error
	CreateOverride(tx *gorm.DB, override *model.SerialOverride) error
	Delete(tx *gorm.DB, id uuid.UUID, deletedBy string) error
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

// Create inserts the sale together with its line items.
func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	if err := tx.Create(sale).Error; err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sale, nil
}

// LockByID loads the sale with a row lock held until tx ends.
func (r *saleRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := tx.Where("sale_id = ?", sale.ID).Order("created_at ASC, id ASC").Find(&sale.LineItems).Error; err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	return &sale, nil
}

func (r *saleRepo) FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error) {
	query := r.db.WithContext(ctx).Model(&model.Sale{}).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Channels) > 0 {
		query = query.Where("channel IN ?", filter.Channels)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("LOWER(customer_email) = ?", strings.ToLower(strings.TrimSpace(filter.CustomerEmail)))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var sales []model.Sale
	if err := query.Order("created_at DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (r *saleRepo) UpdateStatus(tx *gorm.DB, sale *model.Sale) error {
	result := tx.Model(&model.Sale{}).Where("id = ?", sale.ID).Updates(map[string]interface{}{
		"status":       sale.Status,
		"shipped_at":   sale.ShippedAt,
		"delivered_at": sale.DeliveredAt,
		"updated_by":   sale.UpdatedBy,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update sale status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveLineItems persists serials and allocation state of the given items.
func (r *saleRepo) SaveLineItems(tx *gorm.DB, items []model.SaleLineItem) error {
	for i := range items {
		item := &items[i]
		err := tx.Model(item).Select("serials", "allocation_state", "updated_by").Updates(item).Error
		if err != nil {
			return fmt.Errorf("failed to save line item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *saleRepo) CreateOverride(tx *gorm.DB, override *model.SerialOverride) error {
	if err := tx.Create(override).Error; err != nil {
		return fmt.Errorf("failed to record serial override: %w", err)
	}
	return nil
}

func (r *saleRepo) Delete(tx *gorm.DB, id uuid.UUID, deletedBy string) error {
	if err := tx.Model(&model.Sale{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
		return fmt.Errorf("failed to mark sale deleted: %w", err)
	}
	if err := tx.Where("sale_id = ?", id).Delete(&model.SaleLineItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}
	result := tx.Delete(&model.Sale{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sale: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
